// Package testdb provides the shared Postgres fixture for package tests.
// Tests are skipped when no database is reachable, matching how the
// services are exercised in CI.
package testdb

import (
	"fmt"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id UUID PRIMARY KEY,
	isbn TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	price NUMERIC(12,2) NOT NULL,
	stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_transactions (
	id UUID PRIMARY KEY,
	book_id UUID NOT NULL REFERENCES books(id),
	transaction_type TEXT NOT NULL,
	quantity INT NOT NULL CHECK (quantity > 0),
	price NUMERIC(12,2) NOT NULL,
	user_id UUID NOT NULL,
	transaction_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	status TEXT NOT NULL,
	total_amount NUMERIC(12,2) NOT NULL,
	shipping_address TEXT NOT NULL DEFAULT '',
	order_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_details (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id),
	book_id UUID NOT NULL REFERENCES books(id),
	quantity INT NOT NULL CHECK (quantity > 0),
	price NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id),
	amount NUMERIC(12,2) NOT NULL,
	payment_method TEXT NOT NULL DEFAULT '',
	payment_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Setup connects to the test database, creates the schema, and truncates
// all tables. It skips the calling test when Postgres is unreachable.
func Setup(t testing.TB) *sqlx.DB {
	t.Helper()

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("PGHOST", "localhost"),
		envOr("PGPORT", "5432"),
		envOr("PGUSER", "bookmart"),
		envOr("PGPASSWORD", "dev_password_change_in_prod"),
		envOr("PGDATABASE", "bookmart_test"),
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping database tests: could not connect to postgres: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE payments, order_details, orders, inventory_transactions, books CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func envOr(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
