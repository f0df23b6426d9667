// Package events publishes order lifecycle events. The only implementation
// today is a logging no-op bus; a real broker adapter can replace it behind
// the same port.
package events

import (
	"context"
	"log/slog"
)

// NoopBus logs events without sending them anywhere. Useful for local dev
// and for deployments that do not consume order events.
type NoopBus struct{}

// NewNoopBus returns a new no-op event publisher.
func NewNoopBus() *NoopBus {
	return &NoopBus{}
}

func (n *NoopBus) PublishOrderCreated(_ context.Context, orderID string) error {
	slog.Debug("event::order_created", "order_id", orderID)
	return nil
}

func (n *NoopBus) PublishOrderProcessed(_ context.Context, orderID string) error {
	slog.Debug("event::order_processed", "order_id", orderID)
	return nil
}

func (n *NoopBus) PublishOrderCanceled(_ context.Context, orderID string) error {
	slog.Debug("event::order_canceled", "order_id", orderID)
	return nil
}

func (n *NoopBus) PublishOrderFailed(_ context.Context, orderID string, reason string) error {
	slog.Debug("event::order_failed", "order_id", orderID, "reason", reason)
	return nil
}
