package config

import (
	"context"
	"fmt"
	"time"

	"sponsornet/internal/core/services"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NewAuditSink builds the configured audit sink.
// The returned close func releases the Redis client, if any.
func NewAuditSink(cfg *Config, log *zap.Logger) (services.AuditSink, func() error, error) {
	if cfg.Audit.Sink != "redis" {
		log.Info("audit sink: log")
		return services.NewLogAuditSink(log), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("audit sink: redis",
		zap.String("addr", cfg.Redis.Addr),
		zap.String("stream", cfg.Audit.Stream),
	)
	return services.NewRedisAuditSink(client, cfg.Audit.Stream, cfg.Audit.StreamMax), client.Close, nil
}
