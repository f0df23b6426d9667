package idempotency

import "time"

// DefaultTTL applies to operations that do not configure their own window.
const DefaultTTL = 24 * time.Hour

// Operation is the per-operation idempotency configuration: how to derive a
// key, how long captured outcomes live, and whether payload validation runs
// on replay. Construct once and reuse across calls.
type Operation struct {
	name            string
	keyFn           KeyFunc
	ttl             time.Duration
	validatePayload bool
}

// Option configures an Operation.
type Option func(*Operation)

// WithTTL sets the lifetime of captured outcomes for this operation.
// Non-positive values fall back to DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(op *Operation) {
		if ttl > 0 {
			op.ttl = ttl
		}
	}
}

// WithoutPayloadValidation disables fingerprint comparison on cache hits.
// A second call reusing the key with a different payload then silently
// replays the first result instead of being rejected as a conflict.
func WithoutPayloadValidation() Option {
	return func(op *Operation) {
		op.validatePayload = false
	}
}

// NewOperation builds the configuration for a guarded operation. keyFn may be
// nil, which disables idempotency for every call of the operation.
func NewOperation(name string, keyFn KeyFunc, opts ...Option) Operation {
	op := Operation{
		name:            name,
		keyFn:           keyFn,
		ttl:             DefaultTTL,
		validatePayload: true,
	}

	for _, opt := range opts {
		opt(&op)
	}

	return op
}

// Name returns the operation's configured name.
func (op Operation) Name() string { return op.name }

// TTL returns the configured entry lifetime.
func (op Operation) TTL() time.Duration { return op.ttl }
