// Package store reads and writes the todos, notes and memos tables.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoChanges     = errors.New("nothing to update")
	ErrWrongPassword = errors.New("wrong password")
)

// timeLayout matches JavaScript's Date.prototype.toISOString, which the front
// end used to write these columns before the backend owned them.
const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db   *sql.DB
	now  func() time.Time
	cost int
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now, cost: bcrypt.DefaultCost}
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

// setter collects the SET clauses of a partial update.
type setter struct {
	cols []string
	args []any
}

func (u *setter) set(col string, v any) {
	u.cols = append(u.cols, col+" = ?")
	u.args = append(u.args, v)
}

func (u *setter) empty() bool { return len(u.cols) == 0 }

// apply runs the update for id and stamps updatedAt.
func (s *Store) apply(ctx context.Context, table string, id int64, u *setter) error {
	if u.empty() {
		return ErrNoChanges
	}
	u.set("updatedAt", s.stamp())
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(u.cols, ", "))
	res, err := s.db.ExecContext(ctx, query, append(u.args, id)...)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", table, id, err)
	}
	return expectOne(res, table, id)
}

func expectOne(res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	return expectOne(res, table, id)
}

// reorder sets sortOrder to 1..n following ids, inside one transaction.
// scope, when non-empty, is an extra WHERE clause bound to scopeArg.
func (s *Store) reorder(ctx context.Context, table string, ids []int64, scope string, scopeArg any) error {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: id %d listed twice", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf("UPDATE %s SET sortOrder = ?, updatedAt = ? WHERE id = ?", table)
	if scope != "" {
		query += " AND " + scope
	}
	now := s.stamp()
	for i, id := range ids {
		args := []any{i + 1, now, id}
		if scope != "" {
			args = append(args, scopeArg)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("reorder %s: %w", table, err)
		}
		if err := expectOne(res, table, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return v, nil
}
