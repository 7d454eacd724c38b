package app

import (
	"context"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/julik/signed-params/internal/common/errors"
	"github.com/julik/signed-params/internal/common/logging"
	"github.com/julik/signed-params/internal/common/retry"
	"github.com/julik/signed-params/internal/config"
	"github.com/julik/signed-params/internal/crypto"
	"github.com/julik/signed-params/internal/links"
	"github.com/julik/signed-params/internal/redis"
	"github.com/julik/signed-params/internal/secrets"
	"github.com/julik/signed-params/internal/signature"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	RedisClient *redis.Client
	Encryptor   *crypto.ConfigEncryptor
	Resolver    *secrets.Resolver
	Keeper      *signature.Keeper
	Signer      *signature.Signer
	Verifier    *signature.Verifier
	Router      *mux.Router
	Links       *links.Builder
	Logger      logging.Logger

	scheduler  *cron.Cron
	shutdownCh chan struct{}
}

// New connects the salt stores, loads the signing configuration and builds
// the router. It fails when no salt can be resolved.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config:     cfg,
		Logger:     logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
		shutdownCh: make(chan struct{}),
	}

	if err := app.initializeRedis(); err != nil {
		return nil, err
	}

	if err := app.initializeEncryption(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeSigning()
	if err := app.loadInitialSalt(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.Router = mux.NewRouter()
	SetupRoutes(app.Router, app)

	var opts []links.Option
	if cfg.Legacy {
		opts = append(opts, links.WithBracketLists())
	}
	app.Links = links.NewBuilder(app.Router, app.Signer, opts...)

	return app, nil
}

func (app *App) initializeSigning() {
	opts := []secrets.Option{}
	if app.RedisClient != nil {
		opts = append(opts, secrets.WithStore(app.RedisClient))
	}
	if app.Encryptor != nil {
		opts = append(opts, secrets.WithDecrypter(app.Encryptor))
	}
	app.Resolver = secrets.NewResolver(opts...)

	app.Keeper = signature.NewKeeper(app.loadSigningConfig, app.Logger)
	app.Signer = signature.NewSigner(app.Keeper)
	app.Verifier = signature.NewVerifier(app.Keeper, app.Logger)
}

func (app *App) loadSigningConfig(ctx context.Context) (*signature.Config, error) {
	salt, err := app.Resolver.Resolve(ctx, app.Config.SaltSource)
	if err != nil {
		return nil, err
	}
	return app.Config.SigningConfig(salt), nil
}

// saltRetry is the backoff for the first salt load.
var saltRetry = retry.DefaultConfig()

// loadInitialSalt retries while the salt store is unreachable. Any other
// failure, such as a missing salt, is returned at once.
func (app *App) loadInitialSalt() error {
	policy := saltRetry
	policy.Retryable = func(err error) bool {
		return errors.IsType(err, errors.ErrTypeConnection)
	}

	return retry.Do(context.Background(), policy, func(ctx context.Context) error {
		err := app.Keeper.Reload(ctx)
		if err != nil && errors.IsType(err, errors.ErrTypeConnection) {
			app.Logger.Warn("Salt store unavailable, retrying", logging.Err(err))
		}
		return err
	})
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.scheduler != nil {
		<-app.scheduler.Stop().Done()
		app.scheduler = nil
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Logger.Warn("Error closing Redis client", logging.Err(err))
		}
		app.RedisClient = nil
	}
}
