package idempotency

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache protocol outcomes. A nil *Metrics is valid and
// records nothing, so the interceptor works without telemetry wired.
type Metrics struct {
	lookupsTotal    metric.Int64Counter
	conflictsTotal  metric.Int64Counter
	storeFailures   metric.Int64Counter
	executeDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.lookupsTotal, err = meter.Int64Counter(
		"idempotency_lookups_total",
		metric.WithDescription("Idempotency cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency_lookups_total counter: %w", err)
	}

	m.conflictsTotal, err = meter.Int64Counter(
		"idempotency_conflicts_total",
		metric.WithDescription("Requests rejected for reusing a key with a different payload"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency_conflicts_total counter: %w", err)
	}

	m.storeFailures, err = meter.Int64Counter(
		"idempotency_store_failures_total",
		metric.WithDescription("Store operations that failed and triggered fail-open behavior"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency_store_failures_total counter: %w", err)
	}

	m.executeDuration, err = meter.Float64Histogram(
		"idempotency_execute_duration_seconds",
		metric.WithDescription("Duration of guarded executions including store interaction"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency_execute_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) recordLookup(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.lookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) recordConflict(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.conflictsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

func (m *Metrics) recordStoreFailure(ctx context.Context, operation, stage string) {
	if m == nil {
		return
	}
	m.storeFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("stage", stage),
	))
}

func (m *Metrics) recordDuration(ctx context.Context, operation string, seconds float64) {
	if m == nil {
		return
	}
	m.executeDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
