package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/types"
)

// ErrVersionConflict is returned by Store.Save when the stored version differs from the expected one.
var ErrVersionConflict = errors.New("conversation state version conflict")

// Store persists conversation state with optimistic concurrency.
type Store interface {
	// Load returns the state for threadID, or nil and no error when the thread does not exist.
	Load(ctx context.Context, threadID string) (*types.ConversationState, error)
	// Save writes state if the stored version equals expectedVersion (0 means "must not exist").
	// On success state.Version is set to expectedVersion+1.
	Save(ctx context.Context, state *types.ConversationState, expectedVersion int64) error
}

// threadPrefix is prepended to generated and user-derived thread ids.
const threadPrefix = "thread_"

// PartitionKey returns the storage partition for a thread id: the id without its "thread_" prefix.
func PartitionKey(threadID string) string {
	if p := strings.TrimPrefix(threadID, threadPrefix); p != "" {
		return p
	}
	return threadID
}

// ThreadIDForSubject derives the stable thread id for an authenticated subject.
func ThreadIDForSubject(subject string) string {
	return threadPrefix + subject
}

// IsGeneratedThreadID reports whether threadID has the thread_<uuid> form the controller generates.
func IsGeneratedThreadID(threadID string) bool {
	rest, ok := strings.CutPrefix(threadID, threadPrefix)
	if !ok || len(rest) != 36 {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// Lister is implemented by stores that can enumerate threads of a partition.
type Lister interface {
	// ListThreads returns up to limit threads in partition, most recently updated first.
	ListThreads(ctx context.Context, partition string, limit int) ([]types.ThreadSummary, error)
}

// Deleter is implemented by stores that can remove a thread. Removing a missing thread is not an error.
type Deleter interface {
	DeleteThread(ctx context.Context, threadID string) error
}

// Bounds applied to ListThreads limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampListLimit maps a requested limit onto [1, MaxListLimit], using DefaultListLimit for <= 0.
func ClampListLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
