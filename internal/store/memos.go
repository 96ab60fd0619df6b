package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Memo struct {
	ID        int64   `json:"id"`
	NoteID    int64   `json:"noteId"`
	Content   string  `json:"content"`
	SortOrder int64   `json:"sortOrder"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt,omitempty"`
}

type MemoUpdate struct {
	Content   *string `json:"content"`
	SortOrder *int64  `json:"sortOrder"`
}

const memoColumns = "id, noteId, content, sortOrder, createdAt, updatedAt"

func scanMemo(row interface{ Scan(...any) error }) (Memo, error) {
	var (
		m       Memo
		updated sql.NullString
	)
	if err := row.Scan(&m.ID, &m.NoteID, &m.Content, &m.SortOrder, &m.CreatedAt, &updated); err != nil {
		return Memo{}, err
	}
	m.UpdatedAt = nullableString(updated)
	return m, nil
}

func (s *Store) noteExists(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, noteID int64) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM notes WHERE id = ?", noteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("notes %d: %w", noteID, ErrNotFound)
	}
	return err
}

// ListMemos returns the memos of a note in display order.
func (s *Store) ListMemos(ctx context.Context, noteID int64) ([]Memo, error) {
	if err := s.noteExists(ctx, s.db, noteID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+memoColumns+" FROM memos WHERE noteId = ? ORDER BY sortOrder ASC, createdAt DESC", noteID)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	defer rows.Close()
	out := []Memo{}
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateMemo appends a memo after the note's current last memo.
func (s *Store) CreateMemo(ctx context.Context, noteID int64, content string) (Memo, error) {
	content, err := requireText("content", content)
	if err != nil {
		return Memo{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Memo{}, err
	}
	defer tx.Rollback()

	if err := s.noteExists(ctx, tx, noteID); err != nil {
		return Memo{}, err
	}
	now := s.stamp()
	m := Memo{NoteID: noteID, Content: content, CreatedAt: now}
	err = tx.QueryRowContext(ctx, `
INSERT INTO memos (noteId, content, sortOrder, createdAt)
SELECT ?, ?, COALESCE(MAX(sortOrder), 0) + 1, ? FROM memos WHERE noteId = ?
RETURNING id, sortOrder`, noteID, content, now, noteID).Scan(&m.ID, &m.SortOrder)
	if err != nil {
		return Memo{}, fmt.Errorf("create memo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Memo{}, err
	}
	return m, nil
}

func (s *Store) UpdateMemo(ctx context.Context, id int64, upd MemoUpdate) error {
	var u setter
	if upd.Content != nil {
		content, err := requireText("content", *upd.Content)
		if err != nil {
			return err
		}
		u.set("content", content)
	}
	if upd.SortOrder != nil {
		u.set("sortOrder", *upd.SortOrder)
	}
	return s.apply(ctx, "memos", id, &u)
}

func (s *Store) DeleteMemo(ctx context.Context, id int64) error {
	return s.remove(ctx, "memos", id)
}

// ReorderMemos gives the memos of noteID listed in ids the sort orders 1..len(ids).
// An id that belongs to another note is ErrNotFound.
func (s *Store) ReorderMemos(ctx context.Context, noteID int64, ids []int64) error {
	return s.reorder(ctx, "memos", ids, "noteId = ?", noteID)
}
