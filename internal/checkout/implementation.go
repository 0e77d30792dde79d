// internal/checkout/implementation.go
package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"bookmart/internal/catalog"
	"bookmart/internal/events"
	"bookmart/internal/orders"
)

// service implements the Service interface.
type service struct {
	db        *sqlx.DB
	books     *catalog.Store
	users     UserDirectory
	cart      CartCleaner
	publisher events.Publisher
	limiter   *rate.Limiter
	tracer    trace.Tracer
}

// NewService creates a new checkout processor. publisher may be nil.
func NewService(db *sqlx.DB, books *catalog.Store, users UserDirectory, cart CartCleaner, publisher events.Publisher) Service {
	return &service{
		db:        db,
		books:     books,
		users:     users,
		cart:      cart,
		publisher: publisher,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 20),
		tracer:    otel.Tracer("bookmart/checkout"),
	}
}

// PlaceOrder runs the checkout pipeline in one database transaction:
// resolve the user, validate every line against current stock and catalog
// price, verify the declared total, then create the order, its lines, and
// the payment while decrementing stock through conditional updates. The
// cart is cleared only after the transaction commits.
func (s *service) PlaceOrder(ctx context.Context, req Request) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.place_order",
		trace.WithAttributes(
			attribute.String("user.id", req.UserID.String()),
			attribute.Int("line.count", len(req.Lines)),
		),
	)
	defer span.End()

	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Validate lines and decrement stock. The conditional update inside
	// AdjustStock is the stock check: two checkouts racing on the same
	// book cannot both pass it.
	computedTotal := decimal.Zero
	for i, line := range req.Lines {
		if err := line.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		book, err := s.books.GetBook(ctx, tx, line.BookID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		// Stock before price: a line that is both short and stale reports
		// the shortfall.
		if err := s.books.AdjustStock(ctx, tx, line.BookID, -line.Quantity); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		if !line.Price.Equal(book.Price) {
			span.SetAttributes(attribute.String("stale.book_id", book.ID.String()))
			return nil, fmt.Errorf("line %d, book %s: %w", i, book.ID, ErrPriceMismatch)
		}

		computedTotal = computedTotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if !computedTotal.Equal(req.Total) {
		return nil, fmt.Errorf("declared %s, computed %s: %w", req.Total, computedTotal, ErrTotalMismatch)
	}

	order := orders.Order{
		ID:              uuid.New(),
		UserID:          user.ID,
		Status:          orders.StatusProcessing,
		TotalAmount:     computedTotal,
		ShippingAddress: req.ShippingAddress,
		OrderDate:       time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount, shipping_address, order_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, order.UserID, order.Status, order.TotalAmount, order.ShippingAddress, order.OrderDate); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range req.Lines {
		detail := orders.Detail{
			ID:           uuid.New(),
			OrderID:      order.ID,
			BookID:       line.BookID,
			Quantity:     line.Quantity,
			PriceAtOrder: line.Price,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_details (id, order_id, book_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`, detail.ID, detail.OrderID, detail.BookID, detail.Quantity, detail.PriceAtOrder); err != nil {
			return nil, fmt.Errorf("insert order detail: %w", err)
		}
		order.Details = append(order.Details, detail)
	}

	payment := orders.Payment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount, payment_method, payment_date)
		VALUES ($1, $2, $3, $4, $5)
	`, payment.ID, payment.OrderID, payment.Amount, payment.PaymentMethod, payment.PaymentDate); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	// The cart lives in an external service; clearing it after commit is
	// best-effort, like the movement events.
	if err := s.cart.ClearCart(ctx, user.ID); err != nil {
		log.Printf("Failed to clear cart for user %s: %v", user.ID, err)
	}
	s.publishSales(ctx, order)

	return &Receipt{Order: order, Payment: payment}, nil
}

func (s *service) publishSales(ctx context.Context, order orders.Order) {
	if s.publisher == nil {
		return
	}
	for _, d := range order.Details {
		event := &events.StockMovement{
			Type:      "stock.sale",
			BookID:    d.BookID,
			Movement:  "EXPORT",
			Quantity:  d.Quantity,
			Price:     d.PriceAtOrder,
			Timestamp: order.OrderDate,
		}
		if err := s.publisher.PublishStockMovement(ctx, event); err != nil {
			log.Printf("Failed to publish sale for book %s: %v", d.BookID, err)
		}
	}
}
