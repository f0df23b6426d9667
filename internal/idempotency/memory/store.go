// Package memory provides an in-process idempotency store useful for local
// development and tests. Entries live in a mutex-guarded map; expiry is
// checked lazily on read against the process clock.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pmilosev/idemgate/internal/idempotency"
)

type record struct {
	entry     idempotency.Entry
	expiresAt time.Time
}

// Store implements idempotency.Store in process memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{records: make(map[string]record)}
}

// Get returns the live entry for key, or nil when absent or expired. An
// expired record is dropped on the way out so the map does not accumulate
// dead keys.
func (s *Store) Get(_ context.Context, key string) (*idempotency.Entry, error) {
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if time.Now().After(rec.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have already
		// replaced the record with a live one.
		if cur, ok := s.records[key]; ok && time.Now().After(cur.expiresAt) {
			delete(s.records, key)
		}
		s.mu.Unlock()
		return nil, nil
	}

	entry := rec.entry
	return &entry, nil
}

// Put stores the entry unless a live one already exists for the key.
func (s *Store) Put(_ context.Context, key string, entry idempotency.Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && time.Now().Before(existing.expiresAt) {
		return nil
	}

	s.records[key] = record{
		entry:     entry,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Remove deletes the entry for key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Len reports the number of records currently held, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ idempotency.Store = (*Store)(nil)
