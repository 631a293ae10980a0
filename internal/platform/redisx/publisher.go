package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/integration-engine/internal/platform/logger"
)

// Publisher emits JSON events after a write commits.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

type redisPublisher struct {
	rdb     *goredis.Client
	channel string
}

// NewPublisher publishes on channel, or only logs when rdb is nil.
func NewPublisher(rdb *goredis.Client, channel string, log *logger.Logger) Publisher {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "integration.reviews"
	}
	if rdb == nil {
		return &logPublisher{log: log.With("service", "ReviewPublisher"), channel: channel}
	}
	return &redisPublisher{rdb: rdb, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

type logPublisher struct {
	log     *logger.Logger
	channel string
}

func (p *logPublisher) Publish(_ context.Context, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	p.log.Info("event published", "channel", p.channel, "bytes", len(raw))
	return nil
}
