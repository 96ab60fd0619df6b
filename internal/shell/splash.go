package shell

import (
	"context"
	"time"

	"github.com/0viii0viii/shelves/internal/logger"
)

const DefaultSplashDelay = 2 * time.Second

// Splash closes the splash window and reveals the main window after Delay.
type Splash struct {
	Windows Windows
	Delay   time.Duration
	Log     *logger.Logger

	after func(time.Duration) <-chan time.Time
}

func NewSplash(w Windows, delay time.Duration, log *logger.Logger) *Splash {
	return &Splash{Windows: w, Delay: delay, Log: log, after: time.After}
}

// Start runs the swap in its own goroutine. The returned channel is closed
// when the task has finished, whether it swapped windows or not.
func (s *Splash) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}

// Run blocks for the delay, then swaps windows, and reports whether the swap
// ran. It touches no window when no splash window exists or ctx ends first.
// Missing windows are skipped and window errors are only logged.
func (s *Splash) Run(ctx context.Context) bool {
	if _, ok := s.Windows.Window(SplashLabel); !ok {
		return false
	}
	after := s.after
	if after == nil {
		after = time.After
	}
	select {
	case <-ctx.Done():
		s.Log.Debug("splash cancelled", nil)
		return false
	case <-after(s.Delay):
	}

	if w, ok := s.Windows.Window(SplashLabel); ok {
		if err := w.Close(); err != nil {
			s.Log.Warn("close splash window", logger.Err(err))
		}
	}
	if w, ok := s.Windows.Window(MainLabel); ok {
		if err := w.Show(); err != nil {
			s.Log.Warn("show main window", logger.Err(err))
		}
		if err := w.SetFocus(); err != nil {
			s.Log.Warn("focus main window", logger.Err(err))
		}
	}
	return true
}
