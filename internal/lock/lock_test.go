package lock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestPathFor(t *testing.T) {
	if PathFor("data/shelves.db") != "data/shelves.db.lock" {
		t.Fatal("lock path format mismatch")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	path := PathFor(filepath.Join(t.TempDir(), "nested", "shelves.db"))
	ctx := context.Background()

	first := New(path)
	if err := first.Acquire(ctx, 0); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release()

	// idempotent for the owner
	if err := first.Acquire(ctx, 0); err != nil {
		t.Fatalf("re-acquire: %v", err)
	}

	second := New(path)
	start := time.Now()
	err := second.Acquire(ctx, 250*time.Millisecond)
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Fatal("second acquire did not wait for the timeout")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := second.Acquire(ctx, time.Second); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestReleaseWithoutAcquire(t *testing.T) {
	if err := New(filepath.Join(t.TempDir(), "x.lock")).Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}
