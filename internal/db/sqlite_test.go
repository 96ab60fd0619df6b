package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTemp(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database, path
}

func TestDSNCarriesPragmas(t *testing.T) {
	dsn := DSN("data/./shelves.db")
	if !strings.HasPrefix(dsn, filepath.Clean("data/shelves.db")+"?") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	for _, want := range []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %s", dsn, want)
		}
	}
}

func TestOpenSQLiteEnablesForeignKeys(t *testing.T) {
	database, _ := openTemp(t)
	ctx := context.Background()
	// several connections, every one must carry the pragma
	database.SetMaxIdleConns(0)
	for i := 0; i < 3; i++ {
		on, err := ForeignKeysEnabled(ctx, database)
		if err != nil {
			t.Fatalf("pragma: %v", err)
		}
		if !on {
			t.Fatal("foreign keys disabled")
		}
	}
	if err := RequireForeignKeys(ctx, database); err != nil {
		t.Fatalf("require: %v", err)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestEnsureTableIsIdempotent(t *testing.T) {
	database, _ := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := EnsureTable(ctx, database, "schema_migrations"); err != nil {
			t.Fatalf("ensure #%d: %v", i, err)
		}
	}
	cols, err := TableColumns(ctx, database, "schema_migrations")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	want := []string{"version", "description", "checksum", "applied_at", "applied_by", "duration_ms", "execution_order"}
	if strings.Join(cols, ",") != strings.Join(want, ",") {
		t.Fatalf("columns = %v", cols)
	}
}

func TestValidateTableName(t *testing.T) {
	for _, ok := range []string{"schema_migrations", "_m", "M2"} {
		if err := ValidateTableName(ok); err != nil {
			t.Fatalf("%q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "1abc", "x; DROP TABLE notes", "a-b"} {
		if err := ValidateTableName(bad); !errors.Is(err, ErrBadTableName) {
			t.Fatalf("%q accepted", bad)
		}
	}
}

func TestMemoryDatabaseSharesOneConnection(t *testing.T) {
	ctx := context.Background()
	database, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()
	if err := EnsureTable(ctx, database, "m"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := TableColumns(ctx, database, "m"); err != nil {
		t.Fatalf("columns: %v", err)
	}
}
