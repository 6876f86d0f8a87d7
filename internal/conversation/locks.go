package conversation

import (
	"context"
	"sync"
)

// Locker serializes turns per thread.
type Locker interface {
	// Lock blocks until the thread is free or ctx is done, and returns the unlock function.
	Lock(ctx context.Context, threadID string) (func(), error)
}

// KeyedMutex is an in-process Locker. Entries are dropped once no turn holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates a KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock implements Locker.
func (k *KeyedMutex) Lock(ctx context.Context, threadID string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[threadID]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[threadID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(threadID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(threadID, e)
		})
	}, nil
}

func (k *KeyedMutex) release(threadID string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, threadID)
	}
}

// size returns the number of tracked threads.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
