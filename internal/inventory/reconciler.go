// internal/inventory/reconciler.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookmart/internal/catalog"
)

// Delta returns the signed effect of a movement on the stock counter:
// imports add, exports subtract.
func Delta(t Type, quantity int) int {
	if t == TypeImport {
		return quantity
	}
	return -quantity
}

// Reconciler keeps the denormalized stock counter equal to the net effect
// of the ledger. It is the only path through which ledger operations touch
// book stock.
type Reconciler struct {
	books *catalog.Store
}

// NewReconciler creates a reconciler over the given book store.
func NewReconciler(books *catalog.Store) *Reconciler {
	return &Reconciler{books: books}
}

// Apply applies a movement's effect to the book's stock counter. An export
// fails with catalog.ErrInsufficientStock when it would drive the counter
// negative.
func (r *Reconciler) Apply(ctx context.Context, e sqlx.ExtContext, bookID uuid.UUID, t Type, quantity int) error {
	return r.books.AdjustStock(ctx, e, bookID, Delta(t, quantity))
}

// Reverse undoes a previously applied movement. Reversing an export always
// increases stock. Reversing an import decreases it; if that would underflow,
// the counter had already drifted from the ledger and the drift is reported
// as catalog.ErrStockInconsistent instead of being clamped.
func (r *Reconciler) Reverse(ctx context.Context, e sqlx.ExtContext, bookID uuid.UUID, t Type, quantity int) error {
	err := r.books.AdjustStock(ctx, e, bookID, -Delta(t, quantity))
	if errors.Is(err, catalog.ErrInsufficientStock) {
		return fmt.Errorf("reverse %s of %d: %w", t, quantity, catalog.ErrStockInconsistent)
	}
	return err
}
