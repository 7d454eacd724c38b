package signature

import (
	"context"
	"sync/atomic"

	"github.com/julik/signed-params/internal/common/logging"
)

// LoadFunc produces a fresh configuration, e.g. by resolving the salt from
// its source.
type LoadFunc func(ctx context.Context) (*Config, error)

// Keeper holds the current configuration and swaps it atomically on
// reload. Every Snapshot is a complete, validated Config.
type Keeper struct {
	current atomic.Pointer[Config]
	load    LoadFunc
	logger  logging.Logger
}

// NewKeeper creates a keeper. It holds no configuration until Reload or
// Store succeeds; until then signing fails with NoKey.
func NewKeeper(load LoadFunc, logger logging.Logger) *Keeper {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Keeper{
		load:   load,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "signature_keeper"}),
	}
}

// Snapshot returns the current configuration, or nil before the first load.
func (k *Keeper) Snapshot() *Config {
	return k.current.Load()
}

// Store validates a copy of config and makes it current.
func (k *Keeper) Store(config *Config) error {
	if config == nil {
		return NewConfigurationError(NoKey, "salt is required")
	}

	next := *config
	next.SetDefaults()
	if err := next.Validate(); err != nil {
		return err
	}

	previous := k.current.Swap(&next)
	k.logger.Info("Signing configuration installed",
		logging.String("algorithm", next.Algorithm),
		logging.Bool("legacy", next.Legacy),
		logging.Bool("salt_changed", previous == nil || previous.Salt != next.Salt),
	)
	return nil
}

// Reload calls the load function and stores its result. On failure the
// previous configuration stays in place.
func (k *Keeper) Reload(ctx context.Context) error {
	if k.load == nil {
		return NewConfigurationError(NoKey, "keeper has no configuration source")
	}

	config, err := k.load(ctx)
	if err != nil {
		k.logger.Error("Failed to load signing configuration", err)
		return err
	}

	if err := k.Store(config); err != nil {
		k.logger.Error("Rejected signing configuration", err)
		return err
	}
	return nil
}
