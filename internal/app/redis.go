package app

import (
	"github.com/julik/signed-params/internal/common/logging"
	"github.com/julik/signed-params/internal/crypto"
	"github.com/julik/signed-params/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.UsesRedis() {
		app.Logger.Info("Redis: Not configured (redis: salt sources disabled)")
		return nil
	}

	redisClient, err := redis.NewClient(app.Config.RedisConfig())
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Configured", logging.Field{Key: "address", Value: app.Config.RedisAddress})
	return nil
}

func (app *App) initializeEncryption() error {
	if app.Config.EncryptionKey == "" {
		return nil
	}

	encryptor, err := crypto.NewConfigEncryptor(app.Config.EncryptionKey)
	if err != nil {
		return err
	}
	app.Encryptor = encryptor
	return nil
}
