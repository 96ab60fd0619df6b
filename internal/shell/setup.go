package shell

import (
	"context"
	"time"

	"github.com/0viii0viii/shelves/internal/logger"
)

type Options struct {
	Windows     Windows
	TrayBuilder TrayBuilder
	Links       LinkSource
	SplashDelay time.Duration
	// Quit is called when the tray's quit item is selected.
	Quit func()
	Log  *logger.Logger
}

// Runtime holds what Setup started.
type Runtime struct {
	Tray       *Tray
	Links      *DeepLinks
	SplashDone <-chan struct{}
}

// Setup registers deep links, installs the tray and schedules the splash
// swap, in that order. Any error aborts startup; the splash task is bound to
// ctx and stops when the application shuts down.
func Setup(ctx context.Context, opts Options) (*Runtime, error) {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	rt := &Runtime{
		Links: NewDeepLinks(log),
		Tray:  NewTray(opts.Quit, log),
	}
	if opts.Links != nil {
		if err := rt.Links.Register(opts.Links); err != nil {
			return nil, err
		}
	}
	if opts.TrayBuilder != nil {
		if err := rt.Tray.Install(opts.TrayBuilder); err != nil {
			return nil, err
		}
	}
	if opts.Windows != nil {
		rt.SplashDone = NewSplash(opts.Windows, opts.SplashDelay, log).Start(ctx)
	} else {
		done := make(chan struct{})
		close(done)
		rt.SplashDone = done
	}
	return rt, nil
}
