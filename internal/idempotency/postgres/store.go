// Package postgres backs the idempotency store with the service database.
// Expiry is enforced by the database clock: writes compute expires_at
// server-side and reads never return expired rows. A janitor should call
// DeleteExpired periodically to reclaim storage.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmilosev/idemgate/internal/idempotency"
)

// Store implements idempotency.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, key string) (*idempotency.Entry, error) {
	query := `
		SELECT status_code, body, fingerprint, captured_at
		FROM idempotency_entries
		WHERE key = $1 AND expires_at > now()
	`

	entry := idempotency.Entry{Key: key}
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&entry.Envelope.StatusCode,
		&entry.Envelope.Body,
		&entry.Fingerprint,
		&entry.Envelope.CapturedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency entry: %w", err)
	}

	return &entry, nil
}

func (s *Store) Put(ctx context.Context, key string, entry idempotency.Entry, ttl time.Duration) error {
	// A conflicting row only wins while it is live: an expired row that the
	// janitor has not reclaimed yet is taken over so the key opens a fresh
	// TTL window instead of blocking writes until the next sweep.
	query := `
		INSERT INTO idempotency_entries (key, status_code, body, fingerprint, captured_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, now() + $6 * interval '1 second')
		ON CONFLICT (key) DO UPDATE SET
			status_code = EXCLUDED.status_code,
			body        = EXCLUDED.body,
			fingerprint = EXCLUDED.fingerprint,
			captured_at = EXCLUDED.captured_at,
			expires_at  = EXCLUDED.expires_at
		WHERE idempotency_entries.expires_at <= now()
	`

	_, err := s.pool.Exec(ctx, query,
		key,
		entry.Envelope.StatusCode,
		entry.Envelope.Body,
		entry.Fingerprint,
		entry.Envelope.CapturedAt,
		ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("insert idempotency entry: %w", err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_entries WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete idempotency entry: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose TTL has elapsed and reports how many were
// reclaimed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ idempotency.Store = (*Store)(nil)
