// internal/inventory/service.go
package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookmart/internal/clients"
)

// Service defines the interface for the stock ledger.
type Service interface {
	// RecordTransactions records a batch of movements and applies their
	// stock effect. The batch commits or fails as one transaction.
	RecordTransactions(ctx context.Context, reqs []Request) ([]Transaction, error)

	// UpdateTransaction reverses the stored entry's stock effect, then
	// validates and applies the replacement against the reversed baseline.
	UpdateTransaction(ctx context.Context, id uuid.UUID, req Request) (*Transaction, error)

	// DeleteTransaction reverses the entry's stock effect and removes it.
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	// RecordForOrder persists ledger rows inside the caller's transaction
	// without re-applying their stock effect. Used by order delivery, whose
	// stock decrement already happened at checkout.
	RecordForOrder(ctx context.Context, tx *sqlx.Tx, reqs []Request) ([]Transaction, error)

	ListAll(ctx context.Context) ([]Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]Transaction, error)
}

// UserDirectory resolves the users that movements are attributed to.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*clients.User, error)
}
