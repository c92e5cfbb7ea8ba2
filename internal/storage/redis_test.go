package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/smartinprabhu/newgpt/pkg/types"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreTaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	agent := "Forecasting"
	task := &types.Task{
		TaskID: "task_xyz",
		Status: types.TaskStatusRunning,
		Progress: types.TaskProgress{
			Progress:     "Forecasting starting...",
			CurrentAgent: &agent,
			Percentage:   60,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveTask(ctx, task))

	got, err := store.GetTask(ctx, "task_xyz")
	require.NoError(t, err)
	require.Equal(t, types.TaskStatusRunning, got.Status)
	require.NotNil(t, got.Progress.CurrentAgent)
	require.Equal(t, "Forecasting", *got.Progress.CurrentAgent)
	require.Equal(t, 60, got.Progress.Percentage)

	ttl := mr.TTL("task:task_xyz")
	require.Equal(t, DefaultTaskTTL, ttl)
}

func TestRedisStoreTaskExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.SaveTask(ctx, &types.Task{TaskID: "task_exp"}))

	mr.FastForward(DefaultTaskTTL + time.Second)

	_, err := store.GetTask(ctx, "task_exp")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreGetTaskMissing(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	_, err := store.GetTask(ctx, "task_nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreSessionTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	session := &types.SessionContext{
		SessionID:    "sess_feedcafe00112233",
		AgentType:    types.StepOnboarding,
		BusinessUnit: types.BusinessUnit{Code: "BU1", DisplayName: "Retail"},
	}
	require.NoError(t, store.SaveSession(ctx, session))
	require.Equal(t, DefaultSessionTTL, mr.TTL("session:sess_feedcafe00112233"))

	// Every write refreshes the TTL.
	mr.FastForward(12 * time.Hour)
	require.NoError(t, store.SaveSession(ctx, session))
	require.Equal(t, DefaultSessionTTL, mr.TTL("session:sess_feedcafe00112233"))
}

func TestRedisStoreConversationKeyAndTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	key, err := store.AppendConversation(ctx, &types.ConversationRecord{
		SessionID:    "sess_a",
		Timestamp:    1700000000,
		QueryText:    "forecast volume",
		ResponseText: "forecast produced",
		Embedding:    []float64{0.5, 0.5},
		Metadata:     map[string]string{"business_unit": "Retail"},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "conv:sess_a:1700000000:"))

	parts := strings.Split(key, ":")
	require.Len(t, parts, 4)
	require.Len(t, parts[3], 8)

	require.Equal(t, DefaultConversationTTL, mr.TTL(key))

	records, err := store.ListConversations(ctx, "sess_a")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "forecast volume", records[0].QueryText)
	require.Equal(t, []float64{0.5, 0.5}, records[0].Embedding)
	require.Equal(t, "Retail", records[0].Metadata["business_unit"])
}

func TestRedisStoreListConversationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	for _, ts := range []int64{10, 30, 20} {
		_, err := store.AppendConversation(ctx, &types.ConversationRecord{
			SessionID: "sess_b",
			Timestamp: ts,
		})
		require.NoError(t, err)
	}

	records, err := store.ListConversations(ctx, "sess_b")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, int64(30), records[0].Timestamp)
	require.Equal(t, int64(10), records[2].Timestamp)
}
