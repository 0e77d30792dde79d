// internal/events/publisher.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovement is published after a committed ledger or checkout mutation.
type StockMovement struct {
	Type      string          `json:"type"`
	BookID    uuid.UUID       `json:"book_id"`
	Movement  string          `json:"movement"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderStatusChange is published after an order transition commits.
type OrderStatusChange struct {
	Type      string    `json:"type"`
	OrderID   uuid.UUID `json:"order_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits domain events to downstream consumers. Publishing is
// best-effort: callers log failures and never fail the business operation.
type Publisher interface {
	PublishStockMovement(ctx context.Context, event *StockMovement) error
	PublishOrderStatus(ctx context.Context, event *OrderStatusChange) error
	Close() error
}
