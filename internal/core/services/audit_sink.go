package services

import (
	"context"
	"encoding/json"
	"fmt"

	"sponsornet/internal/core/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LogAuditSink writes audit events to the structured log
type LogAuditSink struct {
	log *zap.Logger
}

// NewLogAuditSink creates a log backed audit sink
func NewLogAuditSink(log *zap.Logger) *LogAuditSink {
	return &LogAuditSink{log: log.Named("audit")}
}

// Emit logs the event
func (s *LogAuditSink) Emit(_ context.Context, event domain.AuditEvent) error {
	s.log.Info(event.Action,
		zap.Uint("actor_id", event.ActorID),
		zap.Uint("entity_id", event.EntityID),
		zap.Any("before", event.Before),
		zap.Any("after", event.After),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

// streamWriter is the subset of *redis.Client used by RedisAuditSink
type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisAuditSink appends audit events to a Redis stream
type RedisAuditSink struct {
	client streamWriter
	stream string
	maxLen int64
}

// NewRedisAuditSink creates a stream backed audit sink.
// maxLen trims the stream approximately; 0 keeps everything.
func NewRedisAuditSink(client streamWriter, stream string, maxLen int64) *RedisAuditSink {
	return &RedisAuditSink{client: client, stream: stream, maxLen: maxLen}
}

// Emit XADDs the event as a JSON payload
func (s *RedisAuditSink) Emit(ctx context.Context, event domain.AuditEvent) error {
	before, err := json.Marshal(event.Before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	after, err := json.Marshal(event.After)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"actor_id":    event.ActorID,
			"action":      event.Action,
			"entity_id":   event.EntityID,
			"before":      string(before),
			"after":       string(after),
			"occurred_at": event.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
