package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/0viii0viii/shelves/internal/api"
	"github.com/0viii0viii/shelves/internal/config"
	"github.com/0viii0viii/shelves/internal/logger"
	"github.com/0viii0viii/shelves/internal/schema"
	"github.com/0viii0viii/shelves/internal/shell"
	"github.com/0viii0viii/shelves/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [url...]",
		Short: "Migrate the database and serve the front-end API",
		Long: "serve brings the database up to date, starts the tray, the splash\n" +
			"sequence and the loopback API. URLs given as arguments are treated as\n" +
			"deep links; if another instance already holds the database they are\n" +
			"forwarded to it and this process exits.",
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, log)
	if err != nil {
		var ee *exitError
		if errors.As(err, &ee) && ee.code == exitLocked {
			return forwardToRunning(ctx, cfg, log, args, err)
		}
		log.Error("open database failed", logger.Err(err))
		return err
	}
	defer s.Close()

	applied, err := migrateUp(ctx, s, false)
	if err != nil {
		log.Error("migrations failed", logger.Err(err))
		return err
	}
	log.Info("database ready", map[string]any{"path": cfg.DBPath(), "applied": len(applied), "schema": schema.Latest()})

	// quit from the tray cancels appCtx; so does a signal.
	appCtx, quit := context.WithCancel(ctx)
	defer quit()

	shellLog := log.With(map[string]any{"component": "shell"})
	windows := shell.NewHeadless(shellLog, shell.SplashLabel, shell.MainLabel)
	links := shell.NewArgsSource(args)
	rt, err := shell.Setup(appCtx, shell.Options{
		Windows:     windows,
		TrayBuilder: windows,
		Links:       links,
		SplashDelay: cfg.SplashDelay(),
		Quit:        quit,
		Log:         shellLog,
	})
	if err != nil {
		log.Error("shell setup failed", logger.Err(err))
		return exit(exitFail, err)
	}

	if debug, _ := logger.ParseLevel(cfg.LogLevel); !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &api.Server{
		Store:      store.New(s.db),
		Runner:     s.runner,
		Migrations: schema.Migrations(),
		Tray:       rt.Tray,
		Links:      links,
		Version:    version.String(),
		Log:        log.With(map[string]any{"component": "api"}),
	}
	srv := server.NewHTTPServer(cfg.Listen)
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return exit(exitFail, fmt.Errorf("listen %s: %w", cfg.Listen, err))
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", map[string]any{"addr": ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-appCtx.Done():
	case serveErr = <-errCh:
		log.Error("api server error", logger.Err(serveErr))
		quit()
	}

	if err := api.Shutdown(srv, shutdownTimeout); err != nil {
		log.Warn("api shutdown", logger.Err(err))
	}
	<-rt.SplashDone
	log.Info("shutdown complete", nil)
	if serveErr != nil {
		return exit(exitFail, serveErr)
	}
	return nil
}

// forwardToRunning hands args to the instance that holds the database lock.
func forwardToRunning(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string, lockErr error) error {
	if len(args) == 0 {
		log.Error("another instance is running", logger.Err(lockErr))
		return lockErr
	}
	if err := api.Forward(ctx, cfg.Listen, args); err != nil {
		log.Error("forward deep links failed", logger.Err(err))
		return exit(exitLocked, err)
	}
	log.Info("deep links forwarded to running instance", map[string]any{"urls": args})
	return nil
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <url>...",
		Short: "Send deep-link URLs to the running instance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := api.Forward(ctx, cfg.Listen, args); err != nil {
				log.Error("open failed", logger.Err(err))
				return exit(exitFail, err)
			}
			log.Info("deep links sent", map[string]any{"urls": args})
			return nil
		},
	}
}
