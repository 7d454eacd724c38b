// Package config loads the service configuration from the environment.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - TLS_CERT_FILE, TLS_KEY_FILE: serve HTTPS when both are set
//
// Signing:
//   - SIGNED_PARAMS_SALT_SOURCE: where the salt comes from, one of env:NAME,
//     static:VALUE, file:PATH, redis:KEY or enc:CIPHERTEXT
//     (default: env:SIGNED_PARAMS_SALT)
//   - SIGNED_PARAMS_ALGORITHM: hmac-sha1, hmac-sha256 or hmac-sha512
//     (default: hmac-sha256, or hmac-sha1 in legacy mode)
//   - SIGNED_PARAMS_LEGACY: accept and issue links in the legacy format
//   - SALT_REFRESH_SCHEDULE: cron spec for re-reading the salt, e.g. "@every 10m"
//
// Redis Configuration (only needed for redis: salt sources):
//   - REDIS_ADDRESS: Redis server address
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - REDIS_KEY_PREFIX: prefix for salt keys (default: signed-params:)
//
// Security Configuration:
//   - CONFIG_ENCRYPTION_KEY: passphrase for enc: salt sources
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/julik/signed-params/internal/common/errors"
	"github.com/julik/signed-params/internal/common/validation"
	"github.com/julik/signed-params/internal/redis"
	"github.com/julik/signed-params/internal/signature"
)

type Config struct {
	Port     string `env:"PORT" validate:"required,numeric"`
	LogLevel string `env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`

	TLSCertFile string `env:"TLS_CERT_FILE" validate:"omitempty,file"`
	TLSKeyFile  string `env:"TLS_KEY_FILE" validate:"omitempty,file"`

	SaltSource          string `env:"SIGNED_PARAMS_SALT_SOURCE" validate:"required,salt_source"`
	Algorithm           string `env:"SIGNED_PARAMS_ALGORITHM" validate:"omitempty,oneof=hmac-sha1 hmac-sha256 hmac-sha512"`
	Legacy              bool   `env:"SIGNED_PARAMS_LEGACY"`
	SaltRefreshSchedule string `env:"SALT_REFRESH_SCHEDULE" validate:"omitempty,cron_expression"`

	RedisAddress   string `env:"REDIS_ADDRESS" validate:"omitempty,hostname_port"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" validate:"min=0,max=15"`
	RedisPoolSize  int    `env:"REDIS_POOL_SIZE" validate:"min=1"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	EncryptionKey string `env:"CONFIG_ENCRYPTION_KEY"`
}

// Load reads the environment. It does not validate; call Validate before use.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		SaltSource:          getEnv("SIGNED_PARAMS_SALT_SOURCE", "env:SIGNED_PARAMS_SALT"),
		Algorithm:           getEnv("SIGNED_PARAMS_ALGORITHM", ""),
		Legacy:              getBoolEnv("SIGNED_PARAMS_LEGACY", false),
		SaltRefreshSchedule: getEnv("SALT_REFRESH_SCHEDULE", ""),

		RedisAddress:   getEnv("REDIS_ADDRESS", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getIntEnv("REDIS_DB", 0),
		RedisPoolSize:  getIntEnv("REDIS_POOL_SIZE", 10),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "signed-params:"),

		EncryptionKey: getEnv("CONFIG_ENCRYPTION_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv returns -1 for unparsable values so validation reports them.
func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return parsed
}

// Validate checks field formats and the dependencies between the salt source
// and the stores it needs.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	switch {
	case (c.TLSCertFile == "") != (c.TLSKeyFile == ""):
		return errors.ConfigError("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	case strings.HasPrefix(c.SaltSource, "redis:") && c.RedisAddress == "":
		return errors.ConfigError("REDIS_ADDRESS is required for a redis: salt source")
	case strings.HasPrefix(c.SaltSource, "enc:") && c.EncryptionKey == "":
		return errors.ConfigError("CONFIG_ENCRYPTION_KEY is required for an enc: salt source")
	}

	return nil
}

// UsesRedis reports whether the salt store must be connected.
func (c *Config) UsesRedis() bool {
	return c.RedisAddress != ""
}

func (c *Config) RedisConfig() *redis.Config {
	return &redis.Config{
		Address:   c.RedisAddress,
		Password:  c.RedisPassword,
		DB:        c.RedisDB,
		PoolSize:  c.RedisPoolSize,
		KeyPrefix: c.RedisKeyPrefix,
	}
}

// SigningConfig builds the signer configuration around an already resolved salt.
func (c *Config) SigningConfig(salt string) *signature.Config {
	return &signature.Config{
		Salt:      salt,
		Algorithm: c.Algorithm,
		Legacy:    c.Legacy,
	}
}
