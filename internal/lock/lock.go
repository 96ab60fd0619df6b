package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrHeld means another process owns the database.
var ErrHeld = errors.New("database is in use by another shelves process")

const retryDelay = 100 * time.Millisecond

// Instance is an exclusive file lock that keeps a second process away from the
// SQLite file.
type Instance struct {
	fl   *flock.Flock
	held bool
}

func New(path string) *Instance {
	return &Instance{fl: flock.New(path)}
}

// Acquire waits up to timeout for the lock. A zero timeout tries once.
func (l *Instance) Acquire(ctx context.Context, timeout time.Duration) error {
	if l.held {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o755); err != nil {
		return err
	}
	var (
		ok  bool
		err error
	)
	if timeout <= 0 {
		ok, err = l.fl.TryLock()
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		ok, err = l.fl.TryLockContext(waitCtx, retryDelay)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("acquire %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrHeld, l.fl.Path())
	}
	l.held = true
	return nil
}

func (l *Instance) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	return l.fl.Unlock()
}

func (l *Instance) Path() string { return l.fl.Path() }

// PathFor returns the lock file path used for the database at dbPath.
func PathFor(dbPath string) string {
	return dbPath + ".lock"
}
