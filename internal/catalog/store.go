// internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store provides read access to books and the single entry point for
// mutating the denormalized stock counter. All methods take an explicit
// sqlx handle so callers control the transactional boundary.
type Store struct {
	tracer trace.Tracer
}

// NewStore creates a new book store.
func NewStore() *Store {
	return &Store{
		tracer: otel.Tracer("bookmart/catalog"),
	}
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.get_book",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	book := &Book{}
	err := sqlx.GetContext(ctx, q, book, `
		SELECT id, isbn, title, author, publisher, price, stock_quantity, created_at, updated_at
		FROM books
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("book %s: %w", id, ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	return book, nil
}

// ListBooks returns all books, most recently updated first.
func (s *Store) ListBooks(ctx context.Context, q sqlx.ExtContext) ([]Book, error) {
	books := []Book{}
	err := sqlx.SelectContext(ctx, q, &books, `
		SELECT id, isbn, title, author, publisher, price, stock_quantity, created_at, updated_at
		FROM books
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// AdjustStock applies a signed delta to a book's stock counter as one
// conditional UPDATE. A negative delta carries a stock_quantity >= n guard
// so the counter can never go negative, even under concurrent writers; a
// zero affected-row count distinguishes a missing book from a shortfall.
func (s *Store) AdjustStock(ctx context.Context, e sqlx.ExtContext, id uuid.UUID, delta int) error {
	ctx, span := s.tracer.Start(ctx, "catalog.adjust_stock",
		trace.WithAttributes(
			attribute.String("book.id", id.String()),
			attribute.Int("stock.delta", delta),
		),
	)
	defer span.End()

	var result sql.Result
	var err error
	if delta < 0 {
		result, err = e.ExecContext(ctx, `
			UPDATE books
			SET stock_quantity = stock_quantity + $1, updated_at = NOW()
			WHERE id = $2 AND stock_quantity >= $3
		`, delta, id, -delta)
	} else {
		result, err = e.ExecContext(ctx, `
			UPDATE books
			SET stock_quantity = stock_quantity + $1, updated_at = NOW()
			WHERE id = $2
		`, delta, id)
	}
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust stock rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.GetBook(ctx, e, id); err != nil {
			return err
		}
		span.SetAttributes(attribute.Bool("stock.shortfall", true))
		return fmt.Errorf("book %s: %w", id, ErrInsufficientStock)
	}

	return nil
}

// Deletable reports whether a book may be removed from the catalog: it
// must carry no stock and have no ledger history. The catalog service owns
// the deletion itself; this core only answers the question.
func (s *Store) Deletable(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (bool, error) {
	book, err := s.GetBook(ctx, q, id)
	if err != nil {
		return false, err
	}
	if book.StockQuantity != 0 {
		return false, nil
	}

	var ledgerRows int
	err = sqlx.GetContext(ctx, q, &ledgerRows, `
		SELECT COUNT(*) FROM inventory_transactions WHERE book_id = $1
	`, id)
	if err != nil {
		return false, fmt.Errorf("count ledger history: %w", err)
	}

	return ledgerRows == 0, nil
}
