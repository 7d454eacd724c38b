// Package redis wraps go-redis for the salt store: one string value per key,
// read when the signing configuration is (re)loaded.
package redis

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/julik/signed-params/internal/common/errors"
)

type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	PoolSize  int    `json:"pool_size"`
	KeyPrefix string `json:"key_prefix"`
}

// NewClient configures the pool without dialing. Connections open on first
// use, so an unreachable server surfaces from Health, Get or Set.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	return &Client{
		rdb:    rdb,
		config: config,
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.ConnectionError("failed to connect to Redis", err)
	}
	return nil
}

// Get returns the value stored under key. A missing key is a not_found
// AppError.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	value, err := c.rdb.Get(ctx, c.config.KeyPrefix+key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", errors.NotFoundError("redis key " + c.config.KeyPrefix + key)
	}
	if err != nil {
		return "", errors.ConnectionError("failed to read from Redis", err)
	}
	return value, nil
}

// Set stores value under key. A zero expiration keeps it forever.
func (c *Client) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	if err := c.rdb.Set(ctx, c.config.KeyPrefix+key, value, expiration).Err(); err != nil {
		return errors.ConnectionError("failed to write to Redis", err)
	}
	return nil
}
