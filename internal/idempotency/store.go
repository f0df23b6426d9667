package idempotency

import (
	"context"
	"time"
)

// Entry is the unit of storage: a captured envelope plus the fingerprint of
// the request that produced it. An entry is immutable once written; it
// disappears only through TTL expiry (owned by the store) or explicit
// eviction.
type Entry struct {
	Key         string   `json:"key"`
	Envelope    Envelope `json:"envelope"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// Store is the external collaborator contract for the shared idempotency
// namespace. Implementations must be safe for concurrent use across many
// service instances.
//
// Put has insert-if-absent semantics: when an entry already exists for the
// key, the write is a no-op and the existing entry is preserved. This closes
// the last-write-wins overwrite window between two callers that both observed
// a miss; the operation may still run twice in that window, but exactly one
// outcome wins and is replayed from then on.
//
// TTL expiry is enforced by the store's own clock. Get never returns an
// expired entry, and callers perform no client-side expiry checks.
type Store interface {
	// Get returns the entry for key, or (nil, nil) when no live entry exists.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put writes the entry with the given TTL unless a live entry already
	// exists for the key.
	Put(ctx context.Context, key string, entry Entry, ttl time.Duration) error

	// Remove deletes the entry for key. Removing a missing key is not an
	// error.
	Remove(ctx context.Context, key string) error
}
