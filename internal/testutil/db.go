package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema creates the tables the worker reads and writes. It is applied to
// every test database.
const schema = `
CREATE TABLE accounts (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	payload       TEXT NOT NULL,
	is_accessible BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE parsers (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	from_pattern   TEXT NOT NULL,
	subject_filter TEXT NOT NULL,
	html_filter    TEXT NOT NULL DEFAULT '',
	payload        JSONB,
	version        TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT 'mail',
	activated      BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE documents (
	document_id    TEXT PRIMARY KEY,
	order_id       TEXT,
	parser_name    TEXT NOT NULL,
	parser_id      TEXT NOT NULL,
	parser_version TEXT NOT NULL,
	account_id     TEXT NOT NULL,
	user_id        TEXT NOT NULL,
	path           TEXT NOT NULL,
	uid            BIGINT NOT NULL,
	signature      TEXT NOT NULL,
	domain         TEXT NOT NULL,
	from_address   TEXT NOT NULL,
	item_index     INTEGER NOT NULL,
	date           TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	payload        JSONB NOT NULL
);
`

// NewTestDB creates a new Postgres test container, applies the schema, and
// returns a connection pool. The container is cleaned up when the test
// finishes.
func NewTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mailsift_test"),
		postgres.WithUsername("mailsift"),
		postgres.WithPassword("mailsift"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return pool
}
