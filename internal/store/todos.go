package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Todo struct {
	ID        int64   `json:"id"`
	Content   string  `json:"content"`
	Completed bool    `json:"completed"`
	SortOrder int64   `json:"sortOrder"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt,omitempty"`
}

// TodoUpdate carries the fields to change; nil fields are left alone.
type TodoUpdate struct {
	Content   *string `json:"content"`
	Completed *bool   `json:"completed"`
}

const todoColumns = "id, content, completed, sortOrder, createdAt, updatedAt"

func scanTodo(row interface{ Scan(...any) error }) (Todo, error) {
	var (
		t       Todo
		updated sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Content, &t.Completed, &t.SortOrder, &t.CreatedAt, &updated); err != nil {
		return Todo{}, err
	}
	t.UpdatedAt = nullableString(updated)
	return t, nil
}

// ListTodos returns all todos, newest first.
func (s *Store) ListTodos(ctx context.Context) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+todoColumns+" FROM todos ORDER BY createdAt DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()
	out := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTodo(ctx context.Context, id int64) (Todo, error) {
	t, err := scanTodo(s.db.QueryRowContext(ctx, "SELECT "+todoColumns+" FROM todos WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, fmt.Errorf("todos %d: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *Store) CreateTodo(ctx context.Context, content string) (Todo, error) {
	content, err := requireText("content", content)
	if err != nil {
		return Todo{}, err
	}
	now := s.stamp()
	res, err := s.db.ExecContext(ctx, "INSERT INTO todos (content, completed, createdAt) VALUES (?, 0, ?)", content, now)
	if err != nil {
		return Todo{}, fmt.Errorf("create todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Todo{}, err
	}
	return Todo{ID: id, Content: content, CreatedAt: now}, nil
}

func (s *Store) UpdateTodo(ctx context.Context, id int64, upd TodoUpdate) error {
	var u setter
	if upd.Content != nil {
		content, err := requireText("content", *upd.Content)
		if err != nil {
			return err
		}
		u.set("content", content)
	}
	if upd.Completed != nil {
		u.set("completed", *upd.Completed)
	}
	return s.apply(ctx, "todos", id, &u)
}

// ToggleTodo flips the completed flag and returns the updated todo.
func (s *Store) ToggleTodo(ctx context.Context, id int64) (Todo, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE todos SET completed = 1 - completed, updatedAt = ? WHERE id = ?", s.stamp(), id)
	if err != nil {
		return Todo{}, fmt.Errorf("toggle todo %d: %w", id, err)
	}
	if err := expectOne(res, "todos", id); err != nil {
		return Todo{}, err
	}
	return s.GetTodo(ctx, id)
}

func (s *Store) DeleteTodo(ctx context.Context, id int64) error {
	return s.remove(ctx, "todos", id)
}

// DeleteCompletedTodos removes every completed todo and reports how many went.
func (s *Store) DeleteCompletedTodos(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE completed = 1")
	if err != nil {
		return 0, fmt.Errorf("delete completed todos: %w", err)
	}
	return res.RowsAffected()
}
