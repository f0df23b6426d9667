package idempotency

// Args carries the named argument bindings of a guarded call. Key derivation
// and fingerprinting both operate on this map, so callers should bind every
// argument that identifies the logical operation attempt.
type Args map[string]any

// KeyFunc derives an idempotency key from call arguments. Returning an empty
// string (or an error) means no key is available and the call runs without
// deduplication. Composite keys are produced by the closure itself, e.g.
// combining a user ID and an action; the interceptor imposes no policy on
// how keys are assembled.
type KeyFunc func(args Args) (string, error)

// deriveKey evaluates the operation's key closure. Derivation is fail-open:
// an error or panic inside the closure is logged and treated as an absent
// key, so the guarded operation still executes, just unprotected.
func (i *Interceptor) deriveKey(op Operation, args Args) (key string, ok bool) {
	if op.keyFn == nil {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			i.logger.Warn("idempotency key derivation panicked",
				"operation", op.name,
				"panic", r,
			)
			key, ok = "", false
		}
	}()

	derived, err := op.keyFn(args)
	if err != nil {
		i.logger.Warn("idempotency key derivation failed",
			"operation", op.name,
			"error", err,
		)
		return "", false
	}

	if derived == "" {
		return "", false
	}

	return derived, true
}
