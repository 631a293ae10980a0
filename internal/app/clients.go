package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/integration-engine/internal/data/db"
	"github.com/yungbote/integration-engine/internal/platform/logger"
	"github.com/yungbote/integration-engine/internal/platform/redisx"
)

type Clients struct {
	DB    *db.Service
	Redis *goredis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	dbs, err := db.Open(cfg.DB, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init database: %w", err)
	}

	// Redis is optional; without it locks and review events stay in-process.
	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		_ = dbs.Close()
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	return Clients{DB: dbs, Redis: rdb}, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
