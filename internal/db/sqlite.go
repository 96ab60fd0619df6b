package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

// Pragmas applied to every pooled connection. Foreign keys are off by default
// in SQLite, and the memos cascade depends on them.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

var (
	ErrForeignKeysDisabled = errors.New("sqlite foreign key enforcement is disabled")
	ErrBadTableName        = errors.New("invalid table name")
)

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DSN builds a modernc.org/sqlite data source name for path.
func DSN(path string) string {
	params := make([]string, 0, len(pragmas)+1)
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	params = append(params, "_txlock=immediate")
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	return path + "?" + strings.Join(params, "&")
}

func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// ValidateTableName guards identifiers that are interpolated into DDL.
func ValidateTableName(table string) error {
	if !tableRe.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrBadTableName, table)
	}
	return nil
}

func EnsureTable(ctx context.Context, db *sql.DB, table string) error {
	if err := ValidateTableName(table); err != nil {
		return err
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  version INTEGER PRIMARY KEY,
  description TEXT NOT NULL,
  checksum TEXT NOT NULL,
  applied_at INTEGER NOT NULL,
  applied_by TEXT NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  execution_order INTEGER NOT NULL
)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s: %w", table, err)
	}
	return nil
}

// ForeignKeysEnabled reports the foreign_keys pragma of a pooled connection.
func ForeignKeysEnabled(ctx context.Context, db *sql.DB) (bool, error) {
	var on int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on); err != nil {
		return false, fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	return on == 1, nil
}

// RequireForeignKeys fails with ErrForeignKeysDisabled when enforcement is off.
func RequireForeignKeys(ctx context.Context, db *sql.DB) error {
	on, err := ForeignKeysEnabled(ctx, db)
	if err != nil {
		return err
	}
	if !on {
		return ErrForeignKeysDisabled
	}
	return nil
}

// TableColumns lists the column names of table in declaration order.
func TableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}
