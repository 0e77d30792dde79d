// internal/inventory/domain.go
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionNotFound is returned when a ledger entry does not exist.
	ErrTransactionNotFound = errors.New("inventory transaction not found")

	// ErrInvalidTransactionType is returned for a type outside {IMPORT, EXPORT}.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidQuantity is returned for a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPrice is returned for a non-positive price.
	ErrInvalidPrice = errors.New("price must be positive")
)

// Type classifies a stock movement.
type Type string

const (
	TypeImport Type = "IMPORT"
	TypeExport Type = "EXPORT"
)

// Valid reports whether t is a recognized movement type.
func (t Type) Valid() bool {
	return t == TypeImport || t == TypeExport
}

// Transaction is one row of the stock ledger: the durable record of a
// single movement, with the price captured at transaction time.
type Transaction struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	BookID          uuid.UUID       `db:"book_id" json:"book_id"`
	Type            Type            `db:"transaction_type" json:"transaction_type"`
	Quantity        int             `db:"quantity" json:"quantity"`
	Price           decimal.Decimal `db:"price" json:"price"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	TransactionDate time.Time       `db:"transaction_date" json:"transaction_date"`
}

// Request describes a movement to be recorded.
type Request struct {
	BookID   uuid.UUID       `json:"book_id"`
	Type     Type            `json:"transaction_type"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	UserID   uuid.UUID       `json:"user_id"`
}

// Validate checks the request's type, quantity, and price.
func (r Request) Validate() error {
	if !r.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !r.Price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}
