// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrBookNotFound is returned when a referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrInsufficientStock is returned when a decrement would drive the
	// stock counter negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockInconsistent is returned when reversing an import would
	// underflow the counter, meaning the counter and the ledger had
	// already drifted apart.
	ErrStockInconsistent = errors.New("stock counter inconsistent with ledger")
)

// Book is the catalog read model the inventory core depends on. Book
// creation and deletion belong to the catalog service; this core only
// reads books and mutates their stock counter.
type Book struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	ISBN          string          `db:"isbn" json:"isbn"`
	Title         string          `db:"title" json:"title"`
	Author        string          `db:"author" json:"author"`
	Publisher     string          `db:"publisher" json:"publisher,omitempty"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
