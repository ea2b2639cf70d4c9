package services

import (
	"context"
	"errors"
	"time"

	"sponsornet/internal/core/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditSink is the write-only audit log. The core never reads it back.
type AuditSink interface {
	Emit(ctx context.Context, event domain.AuditEvent) error
}

// TreeLimits bounds subtree responses regardless of client input
type TreeLimits struct {
	MemberMaxDepth int
	AdminMaxDepth  int
	DefaultDepth   int
	MaxExpanded    int
}

// DefaultTreeLimits are used when config leaves a value unset
var DefaultTreeLimits = TreeLimits{
	MemberMaxDepth: 5,
	AdminMaxDepth:  12,
	DefaultDepth:   3,
	MaxExpanded:    50,
}

// emitAudit sends an event after commit. Failures are logged, never returned:
// the mutation has already happened.
func emitAudit(ctx context.Context, sink AuditSink, log *zap.Logger, event domain.AuditEvent) {
	if sink == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := sink.Emit(ctx, event); err != nil {
		log.Warn("audit emit failed",
			zap.String("action", event.Action),
			zap.Uint("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}

// notFound maps gorm.ErrRecordNotFound to typed, passes other errors through
func notFound(err error, typed error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return typed
	}
	return err
}
