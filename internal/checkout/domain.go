// internal/checkout/domain.go
package checkout

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookmart/internal/inventory"
	"bookmart/internal/orders"
)

var (
	// ErrPriceMismatch is returned when a cart line's price no longer
	// matches the catalog price (stale client-side cart data).
	ErrPriceMismatch = errors.New("line price does not match catalog price")

	// ErrTotalMismatch is returned when the client-declared total does not
	// equal the sum of the line subtotals.
	ErrTotalMismatch = errors.New("declared total does not match computed total")

	// ErrEmptyCart is returned for a checkout with no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrRateLimited is returned when the checkout limiter rejects the
	// request.
	ErrRateLimited = errors.New("checkout rate limit exceeded")
)

// Line is one cart entry as the client last saw it; Price is re-validated
// against the catalog at checkout time.
type Line struct {
	BookID   uuid.UUID       `json:"book_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Validate checks a line's quantity and price.
func (l Line) Validate() error {
	if l.Quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	if !l.Price.IsPositive() {
		return inventory.ErrInvalidPrice
	}
	return nil
}

// Request is a cart submitted for checkout.
type Request struct {
	UserID          uuid.UUID       `json:"user_id"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	Total           decimal.Decimal `json:"total"`
	Lines           []Line          `json:"lines"`
}

// Receipt is the composed result of a successful checkout.
type Receipt struct {
	Order   orders.Order   `json:"order"`
	Payment orders.Payment `json:"payment"`
}
