package idempotency

import "errors"

var (
	// ErrPayloadConflict is returned when an idempotency key is presented
	// with a payload whose fingerprint does not match the one stored for
	// that key. The existing entry is left untouched and the guarded
	// operation is not executed.
	ErrPayloadConflict = errors.New("idempotency key reused with a different payload")
)
