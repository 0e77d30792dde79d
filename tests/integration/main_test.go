// tests/integration/main_test.go
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmart/internal/catalog"
	"bookmart/internal/checkout"
	"bookmart/internal/clients"
	"bookmart/internal/idempotency"
	"bookmart/internal/inventory"
	"bookmart/internal/orders"
	"bookmart/internal/testdb"
)

type stubUsers struct{}

func (stubUsers) GetUser(_ context.Context, id uuid.UUID) (*clients.User, error) {
	return &clients.User{ID: id, Status: "active"}, nil
}

type stubCart struct{}

func (stubCart) ClearCart(context.Context, uuid.UUID) error { return nil }

type TestSuite struct {
	db     *sqlx.DB
	server *httptest.Server
}

// setupTestSuite wires the inventory and orders services onto one router
// the way the API gateway exposes them, backed by the shared test database.
func setupTestSuite(t *testing.T) *TestSuite {
	db := testdb.Setup(t)

	idem, err := idempotency.New(filepath.Join(t.TempDir(), "idempotency.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idem.Close() })

	books := catalog.NewStore()
	ledger := inventory.NewService(db, books, stubUsers{}, nil)
	checkoutSvc := checkout.NewService(db, books, stubUsers{}, stubCart{}, nil)
	ordersSvc := orders.NewService(db, books, ledger, nil)

	ordersRouter := chi.NewRouter()
	ordersRouter.Mount("/", checkout.NewHandler(checkoutSvc, idem).Routes())
	ordersRouter.Mount("/fulfillment", orders.NewHandler(ordersSvc).Routes())

	router := chi.NewRouter()
	router.Mount("/api/v1/inventory", inventory.NewHandler(ledger, books, db).Routes())
	router.Mount("/api/v1/orders", ordersRouter)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestSuite{db: db, server: server}
}

func (ts *TestSuite) insertBook(t *testing.T, price decimal.Decimal) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := ts.db.Exec(`
		INSERT INTO books (id, isbn, title, author, price)
		VALUES ($1, $2, $3, $4, $5)
	`, id, "9780141439518", "Pride and Prejudice", "Jane Austen", price)
	require.NoError(t, err)
	return id
}

func (ts *TestSuite) post(t *testing.T, path string, payload interface{}, headers map[string]string) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.server.URL+path, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (ts *TestSuite) patch(t *testing.T, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPatch, ts.server.URL+path, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (ts *TestSuite) getBook(t *testing.T, id uuid.UUID) *catalog.Book {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/inventory/books/%s", ts.server.URL, id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	book := &catalog.Book{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(book))
	return book
}

func (ts *TestSuite) bookLedger(t *testing.T, id uuid.UUID) []inventory.Transaction {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/inventory/books/%s/transactions", ts.server.URL, id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var txns []inventory.Transaction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&txns))
	return txns
}

func TestOrderFulfillmentFlow(t *testing.T) {
	ts := setupTestSuite(t)

	unitPrice := decimal.NewFromInt(50000)
	bookID := ts.insertBook(t, unitPrice)
	supplierID := uuid.New()
	buyerID := uuid.New()

	// Stock the book through the ledger
	resp := ts.post(t, "/api/v1/inventory/transactions", []map[string]interface{}{
		{"book_id": bookID, "transaction_type": "IMPORT", "quantity": 10, "price": unitPrice, "user_id": supplierID},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 10, ts.getBook(t, bookID).StockQuantity)

	// Check out three copies
	receipt := &checkout.Receipt{}
	resp = ts.post(t, "/api/v1/orders/checkout", map[string]interface{}{
		"user_id":          buyerID,
		"shipping_address": "12 Elm Street",
		"payment_method":   "card",
		"total":            decimal.NewFromInt(150000),
		"lines": []map[string]interface{}{
			{"book_id": bookID, "quantity": 3, "price": unitPrice},
		},
	}, map[string]string{"Idempotency-Key": "flow-checkout-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(receipt))
	resp.Body.Close()

	assert.Equal(t, orders.StatusProcessing, receipt.Order.Status)
	assert.True(t, receipt.Payment.Amount.Equal(decimal.NewFromInt(150000)))
	assert.Equal(t, 7, ts.getBook(t, bookID).StockQuantity)

	// Retrying under the same key replays the stored receipt without
	// selling the stock twice
	replay := &checkout.Receipt{}
	resp = ts.post(t, "/api/v1/orders/checkout", map[string]interface{}{
		"user_id": buyerID,
		"total":   decimal.NewFromInt(150000),
		"lines": []map[string]interface{}{
			{"book_id": bookID, "quantity": 3, "price": unitPrice},
		},
	}, map[string]string{"Idempotency-Key": "flow-checkout-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(replay))
	resp.Body.Close()
	assert.Equal(t, receipt.Order.ID, replay.Order.ID)
	assert.Equal(t, 7, ts.getBook(t, bookID).StockQuantity)

	// Deliver the order
	resp = ts.patch(t, fmt.Sprintf("/api/v1/orders/fulfillment/orders/%s/status", receipt.Order.ID),
		map[string]string{"status": "DELIVERED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	delivered := &orders.Order{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(delivered))
	resp.Body.Close()
	assert.Equal(t, orders.StatusDelivered, delivered.Status)

	// The delivery materialized the sale into the ledger without touching
	// the counter again: stock equals imports minus exports
	assert.Equal(t, 7, ts.getBook(t, bookID).StockQuantity)
	txns := ts.bookLedger(t, bookID)
	require.Len(t, txns, 2)
	net := 0
	for _, txn := range txns {
		net += inventory.Delta(txn.Type, txn.Quantity)
	}
	assert.Equal(t, 7, net)

	// Delivered is terminal
	resp = ts.patch(t, fmt.Sprintf("/api/v1/orders/fulfillment/orders/%s/status", receipt.Order.ID),
		map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestCancellationReturnsStock(t *testing.T) {
	ts := setupTestSuite(t)

	unitPrice := decimal.NewFromInt(20000)
	bookID := ts.insertBook(t, unitPrice)

	resp := ts.post(t, "/api/v1/inventory/transactions", []map[string]interface{}{
		{"book_id": bookID, "transaction_type": "IMPORT", "quantity": 5, "price": unitPrice, "user_id": uuid.New()},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	receipt := &checkout.Receipt{}
	resp = ts.post(t, "/api/v1/orders/checkout", map[string]interface{}{
		"user_id": uuid.New(),
		"total":   decimal.NewFromInt(40000),
		"lines": []map[string]interface{}{
			{"book_id": bookID, "quantity": 2, "price": unitPrice},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(receipt))
	resp.Body.Close()
	assert.Equal(t, 3, ts.getBook(t, bookID).StockQuantity)

	resp = ts.patch(t, fmt.Sprintf("/api/v1/orders/fulfillment/orders/%s/status", receipt.Order.ID),
		map[string]string{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The full quantity is back on hand and no sale reached the ledger
	assert.Equal(t, 5, ts.getBook(t, bookID).StockQuantity)
	require.Len(t, ts.bookLedger(t, bookID), 1)
}

func TestStalePriceIsRejectedAtCheckout(t *testing.T) {
	ts := setupTestSuite(t)

	bookID := ts.insertBook(t, decimal.NewFromInt(50000))
	resp := ts.post(t, "/api/v1/inventory/transactions", []map[string]interface{}{
		{"book_id": bookID, "transaction_type": "IMPORT", "quantity": 5, "price": decimal.NewFromInt(50000), "user_id": uuid.New()},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// The cart still carries yesterday's price
	resp = ts.post(t, "/api/v1/orders/checkout", map[string]interface{}{
		"user_id": uuid.New(),
		"total":   decimal.NewFromInt(45000),
		"lines": []map[string]interface{}{
			{"book_id": bookID, "quantity": 1, "price": decimal.NewFromInt(45000)},
		},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 5, ts.getBook(t, bookID).StockQuantity)
}
