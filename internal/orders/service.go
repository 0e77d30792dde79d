// internal/orders/service.go
package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookmart/internal/inventory"
)

// Service defines the interface for the order lifecycle.
type Service interface {
	// SetStatus applies one status transition. Delivery materializes the
	// order's export entries into the stock ledger; cancellation returns
	// the order's stock to the pool.
	SetStatus(ctx context.Context, orderID uuid.UUID, status Status) (*Order, error)

	// BulkSetStatus applies SetStatus to each ID independently: one
	// failure does not roll back earlier successes, and the result carries
	// per-item failure information.
	BulkSetStatus(ctx context.Context, orderIDs []uuid.UUID, status Status) []StatusResult

	GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	Stats(ctx context.Context) (*Stats, error)
}

// LedgerRecorder is the slice of the stock ledger delivery depends on.
type LedgerRecorder interface {
	RecordForOrder(ctx context.Context, tx *sqlx.Tx, reqs []inventory.Request) ([]inventory.Transaction, error)
}
