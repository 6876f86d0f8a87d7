package conversation

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage is returned when a turn carries no user message.
var ErrEmptyMessage = errors.New("message is required")

// PersistenceConflictError is returned when a turn still conflicts after its single reload-and-retry.
type PersistenceConflictError struct {
	ThreadID string
}

func (e *PersistenceConflictError) Error() string {
	return fmt.Sprintf("concurrent update of thread %s, retry the turn", e.ThreadID)
}

// Unwrap lets callers match ErrVersionConflict.
func (e *PersistenceConflictError) Unwrap() error {
	return ErrVersionConflict
}
