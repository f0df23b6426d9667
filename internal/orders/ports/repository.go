package ports

import (
	"context"
	"errors"

	"github.com/pmilosev/idemgate/internal/orders/domain"
)

// ErrNotFound is returned when the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// OrderRepository exposes the persistence operations the application layer
// needs. Implementations must return ErrNotFound for unknown IDs.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// ListFilter narrows list queries by status and pagination. Pagination is
// 1-based; zero values fall back to implementation defaults.
type ListFilter struct {
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}
