package app

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"sso-gateway/internal/config"
	"sso-gateway/internal/db"
	"sso-gateway/internal/logger"
	"sso-gateway/internal/redis"
)

type Infra struct {
	DB    *db.DB
	Redis *redis.Client // nil when no Redis is configured
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := db.RunMigration(ctx, sqlDB); err != nil {
		return nil, err
	}

	logger.Info("database ready", nil)

	infra := &Infra{DB: &db.DB{DB: sqlDB}}

	if cfg.RedisAddr == "" {
		logger.Warn("no redis configured, sessions held in process memory", nil)
		return infra, nil
	}

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", nil)
	infra.Redis = redisClient

	return infra, nil
}
