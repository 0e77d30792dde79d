// internal/orders/implementation.go
package orders

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
	"bookmart/internal/inventory"
)

// service implements the Service interface.
type service struct {
	db        *sqlx.DB
	books     *catalog.Store
	ledger    LedgerRecorder
	publisher events.Publisher
	tracer    trace.Tracer
}

// NewService creates a new order lifecycle service. publisher may be nil.
func NewService(db *sqlx.DB, books *catalog.Store, ledger LedgerRecorder, publisher events.Publisher) Service {
	return &service{
		db:        db,
		books:     books,
		ledger:    ledger,
		publisher: publisher,
		tracer:    otel.Tracer("bookmart/orders"),
	}
}

// SetStatus validates the transition and applies its side effects in the
// same transaction as the status write, so a delivery whose ledger write
// fails leaves the order untouched.
func (s *service) SetStatus(ctx context.Context, orderID uuid.UUID, status Status) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.set_status",
		trace.WithAttributes(
			attribute.String("order.id", orderID.String()),
			attribute.String("order.target_status", string(status)),
		),
	)
	defer span.End()

	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransition(status) {
		span.SetAttributes(attribute.String("order.current_status", string(order.Status)))
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, orderID); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	details, err := listDetails(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	switch status {
	case StatusDelivered:
		if err := s.recordDeliveryExports(ctx, tx, order, details); err != nil {
			return nil, err
		}
	case StatusCancelled:
		if err := s.restock(ctx, tx, details); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	order.Status = status
	order.Details = details
	s.publishStatus(ctx, order)
	return order, nil
}

// recordDeliveryExports writes one export ledger entry per order line,
// attributed to the order's user. The entries are record-only: the stock
// decrement already happened at checkout, and applying it again here would
// count the sale twice.
func (s *service) recordDeliveryExports(ctx context.Context, tx *sqlx.Tx, order *Order, details []Detail) error {
	reqs := make([]inventory.Request, 0, len(details))
	for _, d := range details {
		reqs = append(reqs, inventory.Request{
			BookID:   d.BookID,
			Type:     inventory.TypeExport,
			Quantity: d.Quantity,
			Price:    d.PriceAtOrder,
			UserID:   order.UserID,
		})
	}

	if _, err := s.ledger.RecordForOrder(ctx, tx, reqs); err != nil {
		return fmt.Errorf("record delivery exports: %w", err)
	}
	return nil
}

// restock returns a cancelled order's quantities to the pool. Checkout's
// decrement never touched the ledger, so its compensation does not either.
func (s *service) restock(ctx context.Context, tx *sqlx.Tx, details []Detail) error {
	for _, d := range details {
		if err := s.books.AdjustStock(ctx, tx, d.BookID, d.Quantity); err != nil {
			return fmt.Errorf("restock book %s: %w", d.BookID, err)
		}
	}
	return nil
}

// BulkSetStatus applies the transition to each order independently.
func (s *service) BulkSetStatus(ctx context.Context, orderIDs []uuid.UUID, status Status) []StatusResult {
	results := make([]StatusResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		order, err := s.SetStatus(ctx, id, status)
		result := StatusResult{OrderID: id, Order: order}
		if err != nil {
			result.Err = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// GetOrder retrieves an order with its lines.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	order := &Order{}
	err := s.db.GetContext(ctx, order, `
		SELECT id, user_id, status, total_amount, shipping_address, order_date
		FROM orders
		WHERE id = $1
	`, orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	details, err := listDetails(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	order.Details = details
	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders := []Order{}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT id, user_id, status, total_amount, shipping_address, order_date
		FROM orders
		WHERE user_id = $1
		ORDER BY order_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Stats counts orders by status.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan order stats: %w", err)
		}
		switch status {
		case StatusProcessing:
			stats.Processing = count
		case StatusDelivered:
			stats.Delivered = count
		case StatusCancelled:
			stats.Cancelled = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order stats: %w", err)
	}

	return stats, nil
}

func (s *service) publishStatus(ctx context.Context, order *Order) {
	if s.publisher == nil {
		return
	}
	event := &events.OrderStatusChange{
		Type:      "order.status",
		OrderID:   order.ID,
		Status:    string(order.Status),
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.PublishOrderStatus(ctx, event); err != nil {
		log.Printf("Failed to publish status change for order %s: %v", order.ID, err)
	}
}

// lockOrder loads an order FOR UPDATE so concurrent transitions of the same
// order serialize on the row.
func lockOrder(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Order, error) {
	order := &Order{}
	err := tx.GetContext(ctx, order, `
		SELECT id, user_id, status, total_amount, shipping_address, order_date
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return order, nil
}

func listDetails(ctx context.Context, q sqlx.QueryerContext, orderID uuid.UUID) ([]Detail, error) {
	details := []Detail{}
	err := sqlx.SelectContext(ctx, q, &details, `
		SELECT id, order_id, book_id, quantity, price
		FROM order_details
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	return details, nil
}
