package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest accepted note password.
const MinPasswordLen = 4

type Note struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	IsLocked  bool    `json:"isLocked"`
	SortOrder int64   `json:"sortOrder"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt,omitempty"`

	passwordHash string
}

type NewNote struct {
	Title    string `json:"title"`
	Locked   bool   `json:"isLocked"`
	Password string `json:"password"`
}

type NoteUpdate struct {
	Title     *string `json:"title"`
	SortOrder *int64  `json:"sortOrder"`
}

const noteColumns = "id, title, isLocked, password, sortOrder, createdAt, updatedAt"

func scanNote(row interface{ Scan(...any) error }) (Note, error) {
	var (
		n        Note
		password sql.NullString
		updated  sql.NullString
	)
	if err := row.Scan(&n.ID, &n.Title, &n.IsLocked, &password, &n.SortOrder, &n.CreatedAt, &updated); err != nil {
		return Note{}, err
	}
	n.passwordHash = password.String
	n.UpdatedAt = nullableString(updated)
	return n, nil
}

// ListNotes returns notes in display order.
func (s *Store) ListNotes(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+noteColumns+" FROM notes ORDER BY sortOrder ASC, createdAt DESC")
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	out := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) GetNote(ctx context.Context, id int64) (Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, fmt.Errorf("notes %d: %w", id, ErrNotFound)
	}
	return n, err
}

func (s *Store) hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLen)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// CreateNote appends a note after the current last one.
func (s *Store) CreateNote(ctx context.Context, in NewNote) (Note, error) {
	title, err := requireText("title", in.Title)
	if err != nil {
		return Note{}, err
	}
	var hash sql.NullString
	if in.Locked {
		h, err := s.hashPassword(in.Password)
		if err != nil {
			return Note{}, err
		}
		hash = sql.NullString{String: h, Valid: true}
	}
	now := s.stamp()
	n := Note{Title: title, IsLocked: in.Locked, CreatedAt: now, passwordHash: hash.String}
	err = s.db.QueryRowContext(ctx, `
INSERT INTO notes (title, isLocked, password, sortOrder, createdAt)
SELECT ?, ?, ?, COALESCE(MAX(sortOrder), 0) + 1, ? FROM notes
RETURNING id, sortOrder`, title, in.Locked, hash, now).Scan(&n.ID, &n.SortOrder)
	if err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateNote(ctx context.Context, id int64, upd NoteUpdate) error {
	var u setter
	if upd.Title != nil {
		title, err := requireText("title", *upd.Title)
		if err != nil {
			return err
		}
		u.set("title", title)
	}
	if upd.SortOrder != nil {
		u.set("sortOrder", *upd.SortOrder)
	}
	return s.apply(ctx, "notes", id, &u)
}

// SetNoteLock locks a note behind password, or unlocks it and forgets the
// password.
func (s *Store) SetNoteLock(ctx context.Context, id int64, locked bool, password string) error {
	var u setter
	u.set("isLocked", locked)
	if locked {
		hash, err := s.hashPassword(password)
		if err != nil {
			return err
		}
		u.set("password", hash)
	} else {
		u.set("password", nil)
	}
	return s.apply(ctx, "notes", id, &u)
}

// VerifyNotePassword returns nil for an unlocked note or a matching password.
// Notes locked by earlier releases hold the password in plain text; a match
// against one of those replaces it with a bcrypt hash.
func (s *Store) VerifyNotePassword(ctx context.Context, id int64, password string) error {
	n, err := s.GetNote(ctx, id)
	if err != nil {
		return err
	}
	if !n.IsLocked {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(n.passwordHash)); err != nil {
		return s.verifyLegacyPassword(ctx, n, password)
	}
	err = bcrypt.CompareHashAndPassword([]byte(n.passwordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassword
	}
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}

func (s *Store) verifyLegacyPassword(ctx context.Context, n Note, password string) error {
	if subtle.ConstantTimeCompare([]byte(n.passwordHash), []byte(password)) != 1 {
		return ErrWrongPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "UPDATE notes SET password = ? WHERE id = ? AND password = ?", string(b), n.ID, n.passwordHash)
	if err != nil {
		return fmt.Errorf("upgrade password of note %d: %w", n.ID, err)
	}
	return nil
}

// DeleteNote removes a note; its memos follow through ON DELETE CASCADE.
func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	return s.remove(ctx, "notes", id)
}

// ReorderNotes gives the notes in ids the sort orders 1..len(ids).
func (s *Store) ReorderNotes(ctx context.Context, ids []int64) error {
	return s.reorder(ctx, "notes", ids, "", nil)
}
