package conversation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/types"
)

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	state, err := store.Load(ctx, "thread_a")
	require.NoError(t, err)
	assert.Nil(t, state)

	s := types.NewConversationState("thread_a", time.Now())
	s.AppendMessage(types.RoleUser, "hi", time.Now())
	require.NoError(t, store.Save(ctx, s, 0))
	assert.Equal(t, int64(1), s.Version)

	// Mutating the caller's copy must not leak into the store.
	s.AppendMessage(types.RoleUser, "unsaved", time.Now())

	loaded, err := store.Load(ctx, "thread_a")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Equal(t, []string{"thread_a"}, store.threadIDs())
}

func TestMemoryStore_DeleteThread(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, types.NewConversationState("thread_a", time.Now()), 0))
	require.NoError(t, store.Save(ctx, types.NewConversationState("thread_b", time.Now()), 0))

	require.NoError(t, store.DeleteThread(ctx, "thread_a"))
	require.NoError(t, store.DeleteThread(ctx, "thread_a"), "deleting a missing thread is not an error")
	assert.Equal(t, []string{"thread_b"}, store.threadIDs())

	// A deleted thread starts over at version 0.
	require.NoError(t, store.Save(ctx, types.NewConversationState("thread_a", time.Now()), 0))
}

func TestMemoryStore_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := types.NewConversationState("thread_a", time.Now())

	assert.ErrorIs(t, store.Save(ctx, s.Clone(), 3), ErrVersionConflict)
	require.NoError(t, store.Save(ctx, s.Clone(), 0))
	assert.ErrorIs(t, store.Save(ctx, s.Clone(), 0), ErrVersionConflict)
	require.NoError(t, store.Save(ctx, s.Clone(), 1))
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "jane@example.com", PartitionKey("thread_jane@example.com"))
	assert.Equal(t, "t1", PartitionKey("t1"))
	assert.Equal(t, "thread_", PartitionKey("thread_"))
	assert.Equal(t, "thread_jane@example.com", ThreadIDForSubject("jane@example.com"))
}

func TestIsGeneratedThreadID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"thread_" + uuid.NewString(), true},
		{"thread_6F9619FF-8B86-D011-B42D-00C04FC964FF", true},
		{"thread_jane@example.com", false},
		{"thread_{6f9619ff-8b86-d011-b42d-00c04fc964ff}", false},
		{"thread_urn:uuid:6f9619ff-8b86-d011-b42d-00c04fc964ff", false},
		{"6f9619ff-8b86-d011-b42d-00c04fc964ff", false},
		{"thread_", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGeneratedThreadID(tt.id))
		})
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var inFlight, maxInFlight int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "same")
			require.NoError(t, err)
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight)
	assert.Equal(t, 0, km.size())
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	km := NewKeyedMutex()
	unlockA, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, "b")
	require.NoError(t, err)

	unlockB()
	unlockA()
	unlockA() // idempotent
	assert.Equal(t, 0, km.size())
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, km.size())
}

func TestMemoryStore_ListThreads(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"thread_a", "thread_b", "thread_a"} {
		s, err := store.Load(ctx, id)
		require.NoError(t, err)
		var version int64
		if s == nil {
			s = types.NewConversationState(id, base)
		} else {
			version = s.Version
		}
		s.AppendMessage(types.RoleUser, "hi", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Save(ctx, s, version))
	}

	list, err := store.ListThreads(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "thread_a", list[0].ThreadID)
	assert.Equal(t, int64(2), list[0].Version)
	assert.Equal(t, base.Add(2*time.Minute), list[0].UpdatedAt)

	none, err := store.ListThreads(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEncodeDecodeState(t *testing.T) {
	s := types.NewConversationState("thread_a", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.AppendMessage(types.RoleUser, "hello", s.CreatedAt)
	s.Version = 4

	data, err := EncodeState(s, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.Version, "encoding must not touch the caller's state")
	assert.Contains(t, string(data), `"version":5`)

	decoded, err := DecodeState(data, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), decoded.Version)
	assert.Equal(t, s.Messages, decoded.Messages)

	_, err = DecodeState([]byte("{"), 1)
	assert.Error(t, err)
}

func TestClampListLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{5, 5},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampListLimit(tt.in), "limit %d", tt.in)
	}
}
