package conversation

import (
	"context"
	"sort"
	"sync"

	"github.com/jonathan/interview-coach/internal/types"
)

// MemoryStore is an in-process Store. It copies state on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*types.ConversationState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*types.ConversationState)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, threadID string) (*types.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threads[threadID].Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, state *types.ConversationState, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if existing, ok := m.threads[state.ThreadID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return ErrVersionConflict
	}

	state.Version = expectedVersion + 1
	m.threads[state.ThreadID] = state.Clone()
	return nil
}

// DeleteThread implements Deleter.
func (m *MemoryStore) DeleteThread(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, threadID)
	return nil
}

func (m *MemoryStore) threadIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListThreads implements Lister.
func (m *MemoryStore) ListThreads(_ context.Context, partition string, limit int) ([]types.ThreadSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ThreadSummary
	for id, st := range m.threads {
		if PartitionKey(id) == partition {
			out = append(out, st.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ThreadID < out[j].ThreadID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit = ClampListLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
