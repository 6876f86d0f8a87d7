// Package sqlitestore persists interview threads in a local SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS interview_threads (
	thread_id     TEXT PRIMARY KEY,
	partition_key TEXT NOT NULL,
	stage         TEXT NOT NULL,
	state         TEXT NOT NULL,
	version       INTEGER NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS interview_threads_partition_idx
	ON interview_threads (partition_key, updated_at DESC);
`

var (
	_ conversation.Store  = (*Store)(nil)
	_ conversation.Lister = (*Store)(nil)
)

// Store is a conversation.Store backed by SQLite. Timestamps are stored as unix nanoseconds.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", path).Msg("sqlite thread store opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load returns the stored state for threadID, or nil when the thread does not exist.
func (s *Store) Load(ctx context.Context, threadID string) (*types.ConversationState, error) {
	var data string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT state, version FROM interview_threads WHERE thread_id = ?`,
		threadID,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return conversation.DecodeState([]byte(data), version)
}

// Save writes state when the stored version equals expectedVersion.
func (s *Store) Save(ctx context.Context, state *types.ConversationState, expectedVersion int64) error {
	next := expectedVersion + 1
	payload, err := conversation.EncodeState(state, next)
	if err != nil {
		return err
	}

	var result sql.Result
	if expectedVersion == 0 {
		result, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO interview_threads
			 (thread_id, partition_key, stage, state, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			state.ThreadID, conversation.PartitionKey(state.ThreadID), string(state.Stage), string(payload), next,
			state.CreatedAt.UnixNano(), state.UpdatedAt.UnixNano(),
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE interview_threads SET stage = ?, state = ?, version = ?, updated_at = ?
			 WHERE thread_id = ? AND version = ?`,
			string(state.Stage), string(payload), next, state.UpdatedAt.UnixNano(), state.ThreadID, expectedVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to save thread %s: %w", state.ThreadID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save thread %s: %w", state.ThreadID, err)
	}
	if affected == 0 {
		return conversation.ErrVersionConflict
	}
	state.Version = next
	return nil
}

// ListThreads returns up to limit threads in partition, most recently updated first.
func (s *Store) ListThreads(ctx context.Context, partition string, limit int) ([]types.ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, stage, version, updated_at FROM interview_threads
		 WHERE partition_key = ?
		 ORDER BY updated_at DESC, thread_id
		 LIMIT ?`,
		partition, conversation.ClampListLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []types.ThreadSummary
	for rows.Next() {
		var t types.ThreadSummary
		var stage string
		var updated int64
		if err := rows.Scan(&t.ThreadID, &stage, &t.Version, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		t.Stage = types.Stage(stage)
		t.UpdatedAt = time.Unix(0, updated).UTC()
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, nil
}

// DeleteThread removes a thread. Deleting a missing thread is not an error.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM interview_threads WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}
