//go:build integration

package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/types"
)

func setupTestStore(t *testing.T, ttl time.Duration) *Store {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store, err := Connect(ctx, Options{Addr: addr, TTL: ttl})
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to redis: %v", err)
	}
	return store
}

func TestIntegration_SaveLoadConflict(t *testing.T) {
	store := setupTestStore(t, 0)
	defer store.Close()
	ctx := context.Background()

	subject := "redis-" + uuid.NewString()
	s := types.NewConversationState(conversation.ThreadIDForSubject(subject), time.Now().UTC())
	s.AppendMessage(types.RoleUser, "hello", time.Now().UTC())
	defer store.DeleteThread(ctx, s.ThreadID)

	missing, err := store.Load(ctx, s.ThreadID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Save(ctx, s, 0))
	assert.Equal(t, int64(1), s.Version)
	assert.ErrorIs(t, store.Save(ctx, s.Clone(), 0), conversation.ErrVersionConflict)

	loaded, err := store.Load(ctx, s.ThreadID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(1), loaded.Version)
	require.Len(t, loaded.Messages, 1)

	require.NoError(t, store.Save(ctx, loaded, 1))
	assert.ErrorIs(t, store.Save(ctx, s.Clone(), 1), conversation.ErrVersionConflict)

	threads, err := store.ListThreads(ctx, subject, 10)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, int64(2), threads[0].Version)
}

func TestIntegration_TTLExpiresThreads(t *testing.T) {
	store := setupTestStore(t, time.Second)
	defer store.Close()
	ctx := context.Background()

	subject := "redis-ttl-" + uuid.NewString()
	s := types.NewConversationState(conversation.ThreadIDForSubject(subject), time.Now().UTC())
	require.NoError(t, store.Save(ctx, s, 0))

	ttl, err := store.client.TTL(ctx, threadKey(s.ThreadID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	require.NoError(t, store.DeleteThread(ctx, s.ThreadID))
}
