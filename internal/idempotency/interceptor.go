package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Interceptor orchestrates the lookup/execute/store protocol around guarded
// operations. It runs on the caller's goroutine, holds no internal queue or
// scheduler, and performs no retries: enabling safe caller-side retries is
// the entire point.
type Interceptor struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithMetrics attaches cache protocol metrics.
func WithMetrics(metrics *Metrics) InterceptorOption {
	return func(i *Interceptor) {
		i.metrics = metrics
	}
}

// New constructs an Interceptor around the given store. The store is the
// only shared mutable resource; it is injected explicitly and never looked
// up through ambient state.
func New(store Store, logger *slog.Logger, opts ...InterceptorOption) *Interceptor {
	i := &Interceptor{
		store:  store,
		logger: logger,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Execute runs invoke under the operation's idempotency protection.
//
// When no key can be derived the operation runs unmodified and no store
// interaction occurs. With a key present, a stored entry is replayed
// (FromCache=true) instead of re-invoking the operation; on a miss the
// outcome is captured and stored under the operation's TTL before being
// returned (FromCache=false).
//
// Errors from invoke propagate unchanged and are never stored: a retry with
// the same key re-executes the operation. Store failures on either the
// lookup or the write are fail-open — the call proceeds unprotected rather
// than blocking business traffic on cache availability.
//
// A mismatch between the stored fingerprint and the current call's
// fingerprint is returned as ErrPayloadConflict without executing the
// operation or touching the stored entry.
func (i *Interceptor) Execute(ctx context.Context, op Operation, args Args, invoke func(ctx context.Context) (*Response, error)) (*Envelope, error) {
	start := time.Now()
	defer func() {
		i.metrics.recordDuration(ctx, op.name, time.Since(start).Seconds())
	}()

	key, ok := i.deriveKey(op, args)
	if !ok {
		i.metrics.recordLookup(ctx, op.name, "bypass")
		return i.invokeFresh(ctx, op, invoke)
	}

	entry, err := i.store.Get(ctx, key)
	if err != nil {
		i.logger.Warn("idempotency store lookup failed, executing unprotected",
			"operation", op.name,
			"key", key,
			"error", err,
		)
		i.metrics.recordStoreFailure(ctx, op.name, "get")
		return i.invokeFresh(ctx, op, invoke)
	}

	if entry != nil {
		return i.replay(ctx, op, args, key, entry)
	}

	i.metrics.recordLookup(ctx, op.name, "miss")

	resp, err := invoke(ctx)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		i.logger.Warn("guarded operation returned no cacheable outcome",
			"operation", op.name,
			"key", key,
		)
		return nil, nil
	}

	env := newEnvelope(resp, time.Now().UTC())

	fingerprint := ""
	if op.validatePayload {
		fp, err := Fingerprint(args)
		if err != nil {
			i.logger.Warn("request fingerprint unavailable, storing entry without one",
				"operation", op.name,
				"key", key,
				"error", err,
			)
		} else {
			fingerprint = fp
		}
	}

	stored := Entry{Key: key, Envelope: env, Fingerprint: fingerprint}
	if err := i.store.Put(ctx, key, stored, op.ttl); err != nil {
		i.logger.Warn("idempotency entry not stored, retries will re-execute",
			"operation", op.name,
			"key", key,
			"error", err,
		)
		i.metrics.recordStoreFailure(ctx, op.name, "put")
	}

	return &env, nil
}

// Evict removes the entry for key. This is the only path by which the layer
// deletes entries; normal expiry is owned by the store.
func (i *Interceptor) Evict(ctx context.Context, key string) error {
	if err := i.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("evict idempotency entry %q: %w", key, err)
	}
	return nil
}

func (i *Interceptor) replay(ctx context.Context, op Operation, args Args, key string, entry *Entry) (*Envelope, error) {
	if op.validatePayload && entry.Fingerprint != "" {
		fp, err := Fingerprint(args)
		if err != nil {
			i.logger.Warn("request fingerprint unavailable, skipping payload validation",
				"operation", op.name,
				"key", key,
				"error", err,
			)
		} else if fp != entry.Fingerprint {
			i.metrics.recordConflict(ctx, op.name)
			return nil, fmt.Errorf("%w: key %q", ErrPayloadConflict, key)
		}
	}

	i.metrics.recordLookup(ctx, op.name, "hit")

	env := entry.Envelope
	env.FromCache = true
	return &env, nil
}

func (i *Interceptor) invokeFresh(ctx context.Context, op Operation, invoke func(ctx context.Context) (*Response, error)) (*Envelope, error) {
	resp, err := invoke(ctx)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		i.logger.Warn("guarded operation returned no cacheable outcome", "operation", op.name)
		return nil, nil
	}

	env := newEnvelope(resp, time.Now().UTC())
	return &env, nil
}
