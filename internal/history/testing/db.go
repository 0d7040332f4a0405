package historytesting

import (
	"database/sql"
	"testing"
	"time"

	"promptopt/internal/history"
	"promptopt/internal/testutil"

	_ "github.com/duckdb/duckdb-go/v2"
)

const (
	defaultTimeout = 2 * time.Second
)

// Open opens a DuckDB connection and verifies it responds within a short timeout.
// An empty dsn opens an in-memory database.
func Open(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	ctx := testutil.Context(t, defaultTimeout)
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		t.Fatalf("ping duckdb: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// OpenStore returns an in-memory Store with the schema applied.
func OpenStore(t testing.TB) *history.Store {
	t.Helper()
	db := Open(t, "")
	ctx := testutil.Context(t, defaultTimeout)
	if err := history.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return history.NewStore(db)
}
