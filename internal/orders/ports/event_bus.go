package ports

import "context"

// EventBus defines the contract for publishing order lifecycle events.
// Publishing is best-effort: callers persist state first and surface publish
// failures without rolling back.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, orderID string) error
	PublishOrderProcessed(ctx context.Context, orderID string) error
	PublishOrderCanceled(ctx context.Context, orderID string) error
	PublishOrderFailed(ctx context.Context, orderID string, reason string) error
}
