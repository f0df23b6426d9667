// Package redis backs the idempotency store with a shared Redis instance.
// TTL expiry is enforced server-side by Redis; Put uses SET NX so the first
// write for a key wins and entries are never overwritten in place.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pmilosev/idemgate/internal/idempotency"
)

// keyPrefix isolates idempotency entries from unrelated cached data sharing
// the same Redis database.
const keyPrefix = "idempotency:"

// Store implements idempotency.Store on top of go-redis.
type Store struct {
	client *redis.Client
}

// NewStore wraps an already-configured Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) (*idempotency.Entry, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency entry: %w", err)
	}

	var entry idempotency.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}

	return &entry, nil
}

func (s *Store) Put(ctx context.Context, key string, entry idempotency.Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}

	if err := s.client.SetNX(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency entry: %w", err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("remove idempotency entry: %w", err)
	}
	return nil
}

var _ idempotency.Store = (*Store)(nil)
