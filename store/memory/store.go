// Package memory provides an in-memory Store implementation for testing
// and single-process development servers. Data is not persisted.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/webmail/store"
)

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use. Not suitable for production.
type Store struct {
	// batchMu makes a CreateMessages batch visible to readers all at once.
	batchMu   sync.RWMutex
	messages  sync.Map // map[string]*message
	msgLocks  sync.Map // map[string]*sync.Mutex (per-entry locks for flag updates)
	users     sync.Map // map[string]*store.User keyed by email
	usersMu   sync.Mutex
	seq       int64
	connected int32
}

// getMsgLock returns the mutex for an entry ID, creating one if needed.
func (s *Store) getMsgLock(id string) *sync.Mutex {
	lock, _ := s.msgLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// Compile-time checks.
var (
	_ store.Store           = (*Store)(nil)
	_ store.FindWithCounter = (*Store)(nil)
)
