package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/julik/signed-params/internal/app"
	"github.com/julik/signed-params/internal/common/errors"
	"github.com/julik/signed-params/internal/common/logging"
	"github.com/julik/signed-params/internal/config"
	"github.com/julik/signed-params/internal/crypto"
	"github.com/julik/signed-params/internal/params"
	"github.com/julik/signed-params/internal/redis"
	"github.com/julik/signed-params/internal/secrets"
	"github.com/julik/signed-params/internal/signature"
)

type signingFlags struct {
	salt       string
	algorithm  string
	legacy     bool
	configFile string
}

func newFlagSet(name string, sf *signingFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&sf.salt, "salt", "", "salt source overriding SIGNED_PARAMS_SALT_SOURCE, e.g. static:s3cret")
	fs.StringVar(&sf.algorithm, "algorithm", "", "digest algorithm overriding SIGNED_PARAMS_ALGORITHM")
	fs.BoolVar(&sf.legacy, "legacy", false, "use the legacy payload format")
	fs.StringVar(&sf.configFile, "config", "", "JSON signing configuration with salt, algorithm and legacy keys")
	return fs
}

func (sf *signingFlags) config() (*config.Config, error) {
	cfg := config.Load()
	if sf.salt != "" {
		cfg.SaltSource = sf.salt
	}
	if sf.algorithm != "" {
		cfg.Algorithm = sf.algorithm
	}
	if sf.legacy {
		cfg.Legacy = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signingConfig resolves the salt without starting the service. Redis and
// encrypted sources are opened through the same app wiring.
func (sf *signingFlags) signingConfig() (*signature.Config, error) {
	if sf.configFile != "" {
		data, err := os.ReadFile(sf.configFile)
		if err != nil {
			return nil, err
		}
		return signature.LoadConfig(data)
	}

	cfg, err := sf.config()
	if err != nil {
		return nil, err
	}

	kind, _, err := secrets.ParseSource(cfg.SaltSource)
	if err != nil {
		return nil, err
	}
	if kind == secrets.SourceRedis || kind == secrets.SourceEncrypted {
		a, err := newQuietApp(cfg)
		if err != nil {
			return nil, err
		}
		defer a.Cleanup()
		return a.Keeper.Snapshot(), nil
	}

	salt, err := secrets.NewResolver().Resolve(context.Background(), cfg.SaltSource)
	if err != nil {
		return nil, err
	}
	signing := cfg.SigningConfig(salt)
	if err := signing.Validate(); err != nil {
		return nil, err
	}
	return signing, nil
}

func newQuietApp(cfg *config.Config) (*app.App, error) {
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.ErrorLevel, Output: os.Stderr})
	if err != nil {
		return nil, err
	}
	logging.SetGlobalLogger(logger)
	return app.New(cfg)
}

// parsePairs turns key=value arguments into parameters. Repeated keys and
// keys ending in [] become lists.
func parsePairs(args []string) (params.Map, error) {
	values := url.Values{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", arg)
		}
		values.Add(key, value)
	}
	return params.FromValues(values), nil
}

func runSign(args []string, stdout io.Writer) error {
	var sf signingFlags
	fs := newFlagSet("sign", &sf)
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := parsePairs(fs.Args())
	if err != nil {
		return err
	}

	signing, err := sf.signingConfig()
	if err != nil {
		return err
	}

	sig, err := signature.NewSigner(signing).Sign(m)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, sig)
	fmt.Fprintln(stdout, m.Values(signing.Legacy).Encode())
	return nil
}

// runChecksum prints only the signature, leaving the parameters untouched.
func runChecksum(args []string, stdout io.Writer) error {
	var sf signingFlags
	fs := newFlagSet("checksum", &sf)
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := parsePairs(fs.Args())
	if err != nil {
		return err
	}

	signing, err := sf.signingConfig()
	if err != nil {
		return err
	}

	sig, err := signature.NewSigner(signing).Checksum(m)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, sig)
	return nil
}

func runVerify(args []string, stdout io.Writer) error {
	var sf signingFlags
	fs := newFlagSet("verify", &sf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return exitError{code: 2, msg: "verify takes exactly one query string"}
	}

	values, err := url.ParseQuery(strings.TrimPrefix(fs.Arg(0), "?"))
	if err != nil {
		return err
	}

	signing, err := sf.signingConfig()
	if err != nil {
		return err
	}

	err = signature.NewVerifier(signing, logging.GetGlobalLogger()).Verify(params.FromValues(values))
	if signature.IsTampered(err) {
		return exitError{code: 3, msg: "tampered: " + string(signature.TamperReasonOf(err))}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "ok")
	return nil
}

func runLink(args []string, stdout io.Writer) error {
	var sf signingFlags
	fs := newFlagSet("link", &sf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return exitError{code: 2, msg: "link needs a route name"}
	}

	m, err := parsePairs(fs.Args()[1:])
	if err != nil {
		return err
	}

	cfg, err := sf.config()
	if err != nil {
		return err
	}

	a, err := newQuietApp(cfg)
	if err != nil {
		return err
	}
	defer a.Cleanup()

	link, err := a.Links.SignedURL(fs.Arg(0), m)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, link)
	return nil
}

func runEncryptSalt(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("encrypt-salt", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	key := fs.String("key", os.Getenv("CONFIG_ENCRYPTION_KEY"), "encryption passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return exitError{code: 2, msg: "encrypt-salt takes exactly one salt"}
	}

	encryptor, err := crypto.NewConfigEncryptor(*key)
	if err != nil {
		return err
	}

	sealed, err := encryptor.Encrypt(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, secrets.SourceEncrypted+":"+sealed)
	return nil
}

// runStoreSalt writes a salt to the redis store read by redis: sources.
func runStoreSalt(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("store-salt", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	ttl := fs.Duration("ttl", 0, "expiry of the stored salt, 0 keeps it forever")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return exitError{code: 2, msg: "store-salt takes a key and a salt"}
	}

	cfg := config.Load()
	if cfg.RedisAddress == "" {
		return errors.ConfigError("REDIS_ADDRESS is required to store a salt")
	}

	client, err := redis.NewClient(cfg.RedisConfig())
	if err != nil {
		return err
	}
	defer client.Close()

	key, salt := fs.Arg(0), fs.Arg(1)
	if err := client.Set(context.Background(), key, salt, *ttl); err != nil {
		return err
	}

	fmt.Fprintln(stdout, secrets.SourceRedis+":"+key)
	return nil
}
