// internal/inventory/implementation.go
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookmart/internal/catalog"
	"bookmart/internal/events"
)

// service implements the Service interface.
type service struct {
	db         *sqlx.DB
	books      *catalog.Store
	reconciler *Reconciler
	users      UserDirectory
	publisher  events.Publisher
	tracer     trace.Tracer
}

// NewService creates a new stock ledger service. publisher may be nil when
// no broker is configured.
func NewService(db *sqlx.DB, books *catalog.Store, users UserDirectory, publisher events.Publisher) Service {
	return &service{
		db:         db,
		books:      books,
		reconciler: NewReconciler(books),
		users:      users,
		publisher:  publisher,
		tracer:     otel.Tracer("bookmart/inventory"),
	}
}

// RecordTransactions validates, applies, and persists a batch of movements
// inside one database transaction.
func (s *service) RecordTransactions(ctx context.Context, reqs []Request) ([]Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.record",
		trace.WithAttributes(attribute.Int("entry.count", len(reqs))),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	recorded := make([]Transaction, 0, len(reqs))
	for i, req := range reqs {
		txn, err := s.recordOne(ctx, tx, req)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		recorded = append(recorded, *txn)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.publishMovements(ctx, recorded)
	return recorded, nil
}

// recordOne resolves references, applies the stock delta through the
// reconciler, and inserts the ledger row.
func (s *service) recordOne(ctx context.Context, tx *sqlx.Tx, req Request) (*Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if _, err := s.books.GetBook(ctx, tx, req.BookID); err != nil {
		return nil, err
	}

	if err := s.reconciler.Apply(ctx, tx, req.BookID, req.Type, req.Quantity); err != nil {
		return nil, err
	}

	txn := &Transaction{
		ID:              uuid.New(),
		BookID:          req.BookID,
		Type:            req.Type,
		Quantity:        req.Quantity,
		Price:           req.Price,
		UserID:          req.UserID,
		TransactionDate: time.Now().UTC(),
	}
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// UpdateTransaction reverses the stored entry's effect, then validates and
// applies the replacement against the already-reversed baseline. Editing the
// book reference reverses against the old book and applies against the new.
func (s *service) UpdateTransaction(ctx context.Context, id uuid.UUID, req Request) (*Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.update",
		trace.WithAttributes(attribute.String("transaction.id", id.String())),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := lockTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := s.reconciler.Reverse(ctx, tx, old.BookID, old.Type, old.Quantity); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	if _, err := s.books.GetBook(ctx, tx, req.BookID); err != nil {
		return nil, err
	}
	if err := s.reconciler.Apply(ctx, tx, req.BookID, req.Type, req.Quantity); err != nil {
		return nil, err
	}

	updated := &Transaction{
		ID:              id,
		BookID:          req.BookID,
		Type:            req.Type,
		Quantity:        req.Quantity,
		Price:           req.Price,
		UserID:          req.UserID,
		TransactionDate: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE inventory_transactions
		SET book_id = $1, transaction_type = $2, quantity = $3, price = $4, user_id = $5, transaction_date = $6
		WHERE id = $7
	`, updated.BookID, updated.Type, updated.Quantity, updated.Price, updated.UserID, updated.TransactionDate, id)
	if err != nil {
		return nil, fmt.Errorf("update ledger row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.publishMovements(ctx, []Transaction{*updated})
	return updated, nil
}

// DeleteTransaction reverses the entry's stock effect, then removes the row.
func (s *service) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "ledger.delete",
		trace.WithAttributes(attribute.String("transaction.id", id.String())),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := lockTransaction(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := s.reconciler.Reverse(ctx, tx, old.BookID, old.Type, old.Quantity); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_transactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete ledger row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// RecordForOrder persists export rows for a delivered order inside the
// caller's transaction. The stock effect is not re-applied: checkout already
// decremented the counter, so applying these entries again would double-count
// the sale.
func (s *service) RecordForOrder(ctx context.Context, tx *sqlx.Tx, reqs []Request) ([]Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.record_for_order",
		trace.WithAttributes(attribute.Int("entry.count", len(reqs))),
	)
	defer span.End()

	recorded := make([]Transaction, 0, len(reqs))
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		txn := &Transaction{
			ID:              uuid.New(),
			BookID:          req.BookID,
			Type:            req.Type,
			Quantity:        req.Quantity,
			Price:           req.Price,
			UserID:          req.UserID,
			TransactionDate: time.Now().UTC(),
		}
		if err := insertTransaction(ctx, tx, txn); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		recorded = append(recorded, *txn)
	}

	return recorded, nil
}

// ListAll returns the whole ledger, newest first.
func (s *service) ListAll(ctx context.Context) ([]Transaction, error) {
	txns := []Transaction{}
	err := s.db.SelectContext(ctx, &txns, `
		SELECT id, book_id, transaction_type, quantity, price, user_id, transaction_date
		FROM inventory_transactions
		ORDER BY transaction_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// GetByID retrieves one ledger entry.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	txn := &Transaction{}
	err := s.db.GetContext(ctx, txn, `
		SELECT id, book_id, transaction_type, quantity, price, user_id, transaction_date
		FROM inventory_transactions
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return txn, nil
}

// ListByBook returns a book's ledger history, newest first.
func (s *service) ListByBook(ctx context.Context, bookID uuid.UUID) ([]Transaction, error) {
	txns := []Transaction{}
	err := s.db.SelectContext(ctx, &txns, `
		SELECT id, book_id, transaction_type, quantity, price, user_id, transaction_date
		FROM inventory_transactions
		WHERE book_id = $1
		ORDER BY transaction_date DESC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for book: %w", err)
	}
	return txns, nil
}

func (s *service) publishMovements(ctx context.Context, txns []Transaction) {
	if s.publisher == nil {
		return
	}
	for _, txn := range txns {
		event := &events.StockMovement{
			Type:      "stock.movement",
			BookID:    txn.BookID,
			Movement:  string(txn.Type),
			Quantity:  txn.Quantity,
			Price:     txn.Price,
			Timestamp: txn.TransactionDate,
		}
		if err := s.publisher.PublishStockMovement(ctx, event); err != nil {
			log.Printf("Failed to publish stock movement for book %s: %v", txn.BookID, err)
		}
	}
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, txn *Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_transactions (id, book_id, transaction_type, quantity, price, user_id, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, txn.ID, txn.BookID, txn.Type, txn.Quantity, txn.Price, txn.UserID, txn.TransactionDate)
	if err != nil {
		return fmt.Errorf("insert ledger row: %w", err)
	}
	return nil
}

// lockTransaction loads a ledger entry FOR UPDATE so concurrent edits of the
// same entry serialize on the row.
func lockTransaction(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Transaction, error) {
	txn := &Transaction{}
	err := tx.GetContext(ctx, txn, `
		SELECT id, book_id, transaction_type, quantity, price, user_id, transaction_date
		FROM inventory_transactions
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	return txn, nil
}
