// internal/checkout/service.go
package checkout

import (
	"context"

	"github.com/google/uuid"

	"bookmart/internal/clients"
)

// Service defines the interface for the checkout processor.
type Service interface {
	// PlaceOrder converts a cart into a committed order, its lines, and a
	// payment, decrementing stock atomically. Nothing persists on failure.
	PlaceOrder(ctx context.Context, req Request) (*Receipt, error)
}

// UserDirectory resolves the purchasing user.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*clients.User, error)
}

// CartCleaner empties a user's cart after a committed checkout.
type CartCleaner interface {
	ClearCart(ctx context.Context, userID uuid.UUID) error
}
