package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/types"
)

var (
	_ conversation.Store  = (*DB)(nil)
	_ conversation.Lister = (*DB)(nil)
)

// Load returns the stored state for threadID, or nil when the thread does not exist.
func (db *DB) Load(ctx context.Context, threadID string) (*types.ConversationState, error) {
	var data []byte
	var version int64
	err := db.pool.QueryRow(ctx,
		`SELECT state, version FROM interview_threads WHERE thread_id = $1`,
		threadID,
	).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return conversation.DecodeState(data, version)
}

// Save writes state when the stored version equals expectedVersion.
// Version 0 inserts and conflicts if the row already exists.
func (db *DB) Save(ctx context.Context, state *types.ConversationState, expectedVersion int64) error {
	next := expectedVersion + 1
	data, err := conversation.EncodeState(state, next)
	if err != nil {
		return err
	}

	var affected int64
	if expectedVersion == 0 {
		result, err := db.pool.Exec(ctx,
			`INSERT INTO interview_threads (thread_id, partition_key, stage, state, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (thread_id) DO NOTHING`,
			state.ThreadID, conversation.PartitionKey(state.ThreadID), string(state.Stage), data, next,
			state.CreatedAt, state.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert thread %s: %w", state.ThreadID, err)
		}
		affected = result.RowsAffected()
	} else {
		result, err := db.pool.Exec(ctx,
			`UPDATE interview_threads SET stage = $2, state = $3, version = $4, updated_at = $5
			 WHERE thread_id = $1 AND version = $6`,
			state.ThreadID, string(state.Stage), data, next, state.UpdatedAt, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update thread %s: %w", state.ThreadID, err)
		}
		affected = result.RowsAffected()
	}

	if affected == 0 {
		return conversation.ErrVersionConflict
	}
	state.Version = next
	return nil
}

// ListThreads returns up to limit threads in partition, most recently updated first.
func (db *DB) ListThreads(ctx context.Context, partition string, limit int) ([]types.ThreadSummary, error) {
	limit = conversation.ClampListLimit(limit)
	rows, err := db.pool.Query(ctx,
		`SELECT thread_id, stage, version, updated_at FROM interview_threads
		 WHERE partition_key = $1
		 ORDER BY updated_at DESC, thread_id
		 LIMIT $2`,
		partition, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []types.ThreadSummary
	for rows.Next() {
		var s types.ThreadSummary
		var stage string
		if err := rows.Scan(&s.ThreadID, &stage, &s.Version, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		s.Stage = types.Stage(stage)
		threads = append(threads, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, nil
}

// DeleteThread removes a thread. Deleting a missing thread is not an error.
func (db *DB) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM interview_threads WHERE thread_id = $1`, threadID); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}
