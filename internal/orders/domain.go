// internal/orders/domain.go
package orders

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotFound is returned when the order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidStatus is returned for an unrecognized status value.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidTransition is returned when a status change is attempted
	// from a terminal state.
	ErrInvalidTransition = errors.New("order is in a terminal status")
)

// Status is an order's lifecycle state. Processing is initial; Delivered
// and Cancelled are terminal.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// ParseStatus validates a wire-level status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusProcessing, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order in state s may move to target.
// Re-setting the same terminal state is also rejected.
func (s Status) CanTransition(target Status) bool {
	return !s.Terminal() && s != target
}

// Order is a committed purchase. Details and Payment are created atomically
// with the order and never mutated afterward; only Status changes later.
type Order struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	Status          Status          `db:"status" json:"status"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	OrderDate       time.Time       `db:"order_date" json:"order_date"`
	Details         []Detail        `db:"-" json:"details,omitempty"`
}

// Detail is one order line with its price snapshot, independent of later
// catalog price changes.
type Detail struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrderID      uuid.UUID       `db:"order_id" json:"order_id"`
	BookID       uuid.UUID       `db:"book_id" json:"book_id"`
	Quantity     int             `db:"quantity" json:"quantity"`
	PriceAtOrder decimal.Decimal `db:"price" json:"price_at_order"`
}

// Payment records the single payment taken for an order.
type Payment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	OrderID       uuid.UUID       `db:"order_id" json:"order_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
}

// StatusResult is one item of a bulk status change. Err is empty on success.
type StatusResult struct {
	OrderID uuid.UUID `json:"order_id"`
	Order   *Order    `json:"order,omitempty"`
	Err     string    `json:"error,omitempty"`
}

// Stats counts orders by status for admin reporting.
type Stats struct {
	Processing int `json:"processing"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
}
