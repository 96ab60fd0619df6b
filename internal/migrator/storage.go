package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Storage struct {
	DB    *sql.DB
	Table string
}

func (s *Storage) GetAll(ctx context.Context) (map[int64]Row, error) {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`SELECT version, description, checksum, applied_at, applied_by, duration_ms, execution_order FROM %s`, s.Table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]Row{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out[r.Version] = r
	}
	return out, rows.Err()
}

// Recent returns up to n rows, most recently applied first.
func (s *Storage) Recent(ctx context.Context, n int) ([]Row, error) {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`SELECT version, description, checksum, applied_at, applied_by, duration_ms, execution_order FROM %s ORDER BY execution_order DESC, version DESC LIMIT ?`, s.Table), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Storage) MaxExecutionOrder(ctx context.Context) (int64, error) {
	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(execution_order), 0) FROM %s`, s.Table))
	var max int64
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// Insert records r through ex, which is the migration's own transaction when applying.
func (s *Storage) Insert(ctx context.Context, ex execer, r Row) error {
	_, err := ex.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (version, description, checksum, applied_at, applied_by, duration_ms, execution_order)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(version) DO UPDATE SET description=excluded.description, checksum=excluded.checksum, applied_at=excluded.applied_at, applied_by=excluded.applied_by, duration_ms=excluded.duration_ms, execution_order=excluded.execution_order
`, s.Table),
		r.Version, r.Description, r.Checksum, r.AppliedAt.UTC().UnixMilli(), r.AppliedBy, r.DurationMS, r.ExecutionOrder,
	)
	return err
}

// SetChecksum overwrites the stored checksum of version.
func (s *Storage) SetChecksum(ctx context.Context, version int64, sum string) error {
	_, err := s.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET checksum=? WHERE version=?`, s.Table), sum, version)
	return err
}

func (s *Storage) Delete(ctx context.Context, ex execer, version int64) error {
	_, err := ex.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE version=?`, s.Table), version)
	return err
}

func scanRow(rows *sql.Rows) (Row, error) {
	var (
		r         Row
		appliedAt int64
	)
	if err := rows.Scan(&r.Version, &r.Description, &r.Checksum, &appliedAt, &r.AppliedBy, &r.DurationMS, &r.ExecutionOrder); err != nil {
		return Row{}, err
	}
	r.AppliedAt = time.UnixMilli(appliedAt).UTC()
	return r, nil
}
