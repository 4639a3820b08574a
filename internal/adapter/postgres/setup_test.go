package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testSchema seeds a small analytics-flavored schema: explicit FKs on
// products, a reviews table with naming-convention FKs only, seed data
// plus ANALYZE so pg_stats is populated.
const testSchema = `
	CREATE TABLE categories (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);
	COMMENT ON TABLE categories IS 'Product categories';

	CREATE TABLE products (
		id          SERIAL PRIMARY KEY,
		category_id INTEGER NOT NULL REFERENCES categories(id),
		name        TEXT NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('active', 'inactive', 'discontinued')),
		price       NUMERIC(10,2) NOT NULL DEFAULT 0,
		cost        NUMERIC(10,2),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		deleted_at  TIMESTAMPTZ,
		metadata    JSONB
	);
	CREATE INDEX idx_products_category ON products(category_id);
	CREATE INDEX idx_products_status ON products(status);
	CREATE INDEX idx_products_created ON products(created_at);
	COMMENT ON TABLE products IS 'Product catalog';
	COMMENT ON COLUMN products.status IS 'Product lifecycle status';

	-- Table with _id columns but no explicit FK (for implicit FK inference)
	CREATE TABLE reviews (
		id         SERIAL PRIMARY KEY,
		product_id INTEGER NOT NULL,
		user_id    INTEGER NOT NULL,
		rating     SMALLINT NOT NULL CHECK (rating >= 1 AND rating <= 5),
		body       TEXT
	);

	INSERT INTO categories (name) VALUES ('Electronics'), ('Books'), ('Clothing');

	-- price and cost share the (i % 50) base, so they correlate strongly.
	INSERT INTO products (category_id, name, status, price, cost, created_at)
	SELECT
		(i % 3) + 1,
		'Product ' || i,
		CASE (i % 5)
			WHEN 0 THEN 'inactive'
			WHEN 4 THEN 'discontinued'
			ELSE 'active'
		END,
		((i % 50) * 2 + random() * 5)::numeric(10,2),
		((i % 50) * 1.2 + random() * 3)::numeric(10,2),
		now() - (i || ' days')::interval
	FROM generate_series(1, 100) AS i;

	INSERT INTO reviews (product_id, user_id, rating, body)
	SELECT
		(i % 100) + 1,
		(i % 20) + 1,
		(i % 5) + 1,
		CASE WHEN i % 3 = 0 THEN NULL ELSE 'Review ' || i END
	FROM generate_series(1, 200) AS i;
`

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	// Run ANALYZE to populate pg_stats.
	_, err = pool.Exec(ctx, "ANALYZE")
	require.NoError(t, err)

	return pool
}
