package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes a stable hash over the call arguments, used to detect
// reuse of an idempotency key with a different payload.
//
// Canonical form is the JSON encoding of the args map: encoding/json emits
// map keys in sorted order at every nesting level, so two payloads carrying
// the same fields in a different order produce the same digest. Values must
// be JSON-encodable; anything else returns an error.
func Fingerprint(args Args) (string, error) {
	canonical, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("canonicalize request arguments: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
