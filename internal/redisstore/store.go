// Package redisstore persists interview threads in Redis.
//
// Each thread is a JSON document under interview:thread:<id>. A sorted set per partition,
// scored by last update time, indexes threads for listing. Saves run inside WATCH/MULTI so a
// concurrent writer aborts the transaction and the caller sees a version conflict.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/types"
)

const (
	threadKeyPrefix    = "interview:thread:"
	partitionKeyPrefix = "interview:partition:"
)

var (
	_ conversation.Store  = (*Store)(nil)
	_ conversation.Lister = (*Store)(nil)
)

// Options configures Connect.
type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL expires idle threads. Zero keeps them forever.
	TTL time.Duration
}

// Store is a conversation.Store backed by Redis.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New wraps an existing client.
func New(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Connect creates a client for opts and verifies the server is reachable.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	return New(client, opts.TTL), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func threadKey(threadID string) string {
	return threadKeyPrefix + threadID
}

func partitionKey(partition string) string {
	return partitionKeyPrefix + partition
}

// Load returns the stored state for threadID, or nil when the thread does not exist.
func (s *Store) Load(ctx context.Context, threadID string) (*types.ConversationState, error) {
	data, err := s.client.Get(ctx, threadKey(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	version, err := storedVersion(data)
	if err != nil {
		return nil, err
	}
	return conversation.DecodeState(data, version)
}

// Save writes state when the stored version equals expectedVersion.
func (s *Store) Save(ctx context.Context, state *types.ConversationState, expectedVersion int64) error {
	next := expectedVersion + 1
	payload, err := conversation.EncodeState(state, next)
	if err != nil {
		return err
	}
	key := threadKey(state.ThreadID)
	index := partitionKey(conversation.PartitionKey(state.ThreadID))

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		var version int64
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to read thread %s: %w", state.ThreadID, err)
		default:
			if version, err = storedVersion(current); err != nil {
				return err
			}
		}
		if version != expectedVersion {
			return conversation.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			pipe.ZAdd(ctx, index, redis.Z{Score: float64(state.UpdatedAt.UnixMilli()), Member: state.ThreadID})
			if s.ttl > 0 {
				pipe.Expire(ctx, index, s.ttl)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		log.Debug().Str("thread_id", state.ThreadID).Msg("redis transaction aborted by concurrent write")
		return conversation.ErrVersionConflict
	}
	if err != nil {
		if errors.Is(err, conversation.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to save thread %s: %w", state.ThreadID, err)
	}
	state.Version = next
	return nil
}

// ListThreads returns up to limit threads in partition, most recently updated first.
// Index entries whose thread has expired are skipped and pruned.
func (s *Store) ListThreads(ctx context.Context, partition string, limit int) ([]types.ThreadSummary, error) {
	limit = conversation.ClampListLimit(limit)
	index := partitionKey(partition)

	ids, err := s.client.ZRevRange(ctx, index, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = threadKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load threads: %w", err)
	}

	var threads []types.ThreadSummary
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		version, err := storedVersion([]byte(raw))
		if err != nil {
			return nil, err
		}
		state, err := conversation.DecodeState([]byte(raw), version)
		if err != nil {
			return nil, err
		}
		threads = append(threads, state.Summary())
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, index, stale...).Err(); err != nil {
			log.Warn().Err(err).Str("partition", partition).Msg("failed to prune expired thread index entries")
		}
	}
	return threads, nil
}

// DeleteThread removes a thread and its index entry.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, threadKey(threadID))
		pipe.ZRem(ctx, partitionKey(conversation.PartitionKey(threadID)), threadID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}

// storedVersion reads only the version field of a stored document.
func storedVersion(data []byte) (int64, error) {
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("failed to read thread version: %w", err)
	}
	return head.Version, nil
}
