// Package secrets turns a salt source string such as "env:SIGNED_PARAMS_SALT"
// or "redis:salt" into the salt itself.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/julik/signed-params/internal/common/errors"
)

const (
	SourceEnv       = "env"
	SourceStatic    = "static"
	SourceFile      = "file"
	SourceRedis     = "redis"
	SourceEncrypted = "enc"
)

// KeyValueStore is the part of the redis client the resolver reads from.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
}

type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

type Resolver struct {
	store     KeyValueStore
	decrypter Decrypter
	lookupEnv func(string) (string, bool)
	readFile  func(string) ([]byte, error)
}

type Option func(*Resolver)

func WithStore(store KeyValueStore) Option {
	return func(r *Resolver) { r.store = store }
}

func WithDecrypter(decrypter Decrypter) Option {
	return func(r *Resolver) { r.decrypter = decrypter }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lookupEnv: os.LookupEnv,
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseSource splits "kind:reference". Only the first colon separates, so
// static salts may contain colons.
func ParseSource(source string) (kind, ref string, err error) {
	kind, ref, ok := strings.Cut(source, ":")
	if !ok {
		return "", "", errors.ConfigError(fmt.Sprintf("salt source %q has no kind prefix", source))
	}
	switch kind {
	case SourceEnv, SourceStatic, SourceFile, SourceRedis, SourceEncrypted:
		return kind, ref, nil
	default:
		return "", "", errors.ConfigError(fmt.Sprintf("unknown salt source kind %q", kind))
	}
}

// Resolve returns the salt named by source. An empty salt is an error
// whatever the source.
func (r *Resolver) Resolve(ctx context.Context, source string) (string, error) {
	kind, ref, err := ParseSource(source)
	if err != nil {
		return "", err
	}

	value, err := r.resolve(ctx, kind, ref)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errors.ConfigError("salt source resolved to an empty salt").
			WithContext("source", kind)
	}
	return value, nil
}

func (r *Resolver) resolve(ctx context.Context, kind, ref string) (string, error) {
	switch kind {
	case SourceEnv:
		value, ok := r.lookupEnv(ref)
		if !ok {
			return "", errors.ConfigError(fmt.Sprintf("environment variable %s is not set", ref))
		}
		return value, nil

	case SourceStatic:
		return ref, nil

	case SourceFile:
		data, err := r.readFile(ref)
		if err != nil {
			return "", errors.ConfigError(fmt.Sprintf("failed to read salt file: %v", err)).
				WithContext("path", ref)
		}
		return strings.TrimSpace(string(data)), nil

	case SourceRedis:
		if r.store == nil {
			return "", errors.ConfigError("redis salt source requires REDIS_ADDRESS")
		}
		return r.store.Get(ctx, ref)

	case SourceEncrypted:
		if r.decrypter == nil {
			return "", errors.ConfigError("encrypted salt source requires CONFIG_ENCRYPTION_KEY")
		}
		return r.decrypter.Decrypt(ref)
	}

	return "", errors.ConfigError(fmt.Sprintf("unknown salt source kind %q", kind))
}
