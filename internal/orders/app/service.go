package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pmilosev/idemgate/internal/orders/app/commands"
	"github.com/pmilosev/idemgate/internal/orders/domain"
	"github.com/pmilosev/idemgate/internal/orders/metrics"
	"github.com/pmilosev/idemgate/internal/orders/ports"
)

// Service bundles use cases for handling orders via the API. Idempotency is
// not its concern: the HTTP adapter wraps CreateOrder with the interceptor,
// so the service stays a plain guarded operation.
type Service struct {
	repo               ports.OrderRepository
	events             ports.EventBus
	logger             *slog.Logger
	metrics            *metrics.Metrics
	createOrderHandler commands.CommandHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	events ports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	coreHandler := commands.NewCreateOrderCommandHandler(repo, events)
	observableHandler := commands.NewObservableCommandHandler(coreHandler, logger, metrics)

	return &Service{
		repo:               repo,
		events:             events,
		logger:             logger,
		metrics:            metrics,
		createOrderHandler: observableHandler,
	}
}

// CreateOrderInput captures payload for creating an order.
type CreateOrderInput struct {
	CustomerEmail string `json:"customer_email"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency,omitempty"`
}

// CreateOrder orchestrates order creation and event emission.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	cmd := commands.CreateOrderCommand{
		CustomerEmail: input.CustomerEmail,
		AmountCents:   input.AmountCents,
		Currency:      input.Currency,
	}
	return s.createOrderHandler.Handle(ctx, cmd)
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOrders returns orders using a filter.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return s.repo.List(ctx, filter)
}

// CancelOrder attempts to cancel a pending order.
func (s *Service) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.StatusPending {
		return nil, fmt.Errorf("cannot cancel order in status %s", order.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, domain.StatusCanceled); err != nil {
		return nil, err
	}

	order.Status = domain.StatusCanceled
	order.UpdatedAt = time.Now().UTC()

	s.metrics.RecordOrderCanceled(ctx)

	// The cancellation is already durable; a publish failure only costs
	// downstream consumers a notification.
	if err := s.events.PublishOrderCanceled(ctx, order.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order canceled event",
			"order_id", order.ID,
			"error", err,
		)
	}

	return order, nil
}
