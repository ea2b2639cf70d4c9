package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sponsornet/internal/core/domain"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	cmd := redis.NewStringCmd(ctx, "xadd", a.Stream)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("1-0")
	}
	return cmd
}

func TestRedisAuditSink_Emit(t *testing.T) {
	stream := &fakeStream{}
	sink := NewRedisAuditSink(stream, "audit:network", 1000)

	err := sink.Emit(context.Background(), domain.AuditEvent{
		ActorID:    1,
		Action:     domain.ActionReassignSponsor,
		EntityID:   9,
		Before:     map[string]interface{}{"sponsor_id": 2},
		After:      map[string]interface{}{"sponsor_id": 3},
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, stream.calls, 1)

	args := stream.calls[0]
	assert.Equal(t, "audit:network", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, domain.ActionReassignSponsor, values["action"])
	assert.Equal(t, "2024-01-02T03:04:05.000Z", values["occurred_at"])

	var after map[string]int
	require.NoError(t, json.Unmarshal([]byte(values["after"].(string)), &after))
	assert.Equal(t, 3, after["sponsor_id"])
}

func TestRedisAuditSink_Error(t *testing.T) {
	sink := NewRedisAuditSink(&fakeStream{err: errors.New("down")}, "audit", 0)
	err := sink.Emit(context.Background(), domain.AuditEvent{Action: "x"})
	assert.Error(t, err)
}

func TestEmitAudit_FailureOnlyLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := NewRedisAuditSink(&fakeStream{err: errors.New("down")}, "audit", 0)

	emitAudit(context.Background(), sink, zap.New(core), domain.AuditEvent{Action: domain.ActionMemberDeleted, EntityID: 4})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "audit emit failed", logs.All()[0].Message)
}

func TestLogAuditSink_Emit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogAuditSink(zap.New(core))

	require.NoError(t, sink.Emit(context.Background(), domain.AuditEvent{Action: domain.ActionStatusChange, EntityID: 5}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, domain.ActionStatusChange, logs.All()[0].Message)
}
