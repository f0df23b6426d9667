// Package idempotency provides a request deduplication layer that lets
// callers retry a write operation safely without executing it more than
// once. A guarded operation is wrapped by an Interceptor which derives an
// idempotency key from the call arguments, replays a previously captured
// response when one exists, and captures the outcome of a first execution
// into a shared, TTL-bound store.
//
// Store backends live in the memory, redis and postgres subpackages. The
// interceptor itself holds no state beyond its injected dependencies and is
// safe for concurrent use.
package idempotency
