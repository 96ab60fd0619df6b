package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0viii0viii/shelves/internal/config"
	"github.com/0viii0viii/shelves/internal/db"
	"github.com/0viii0viii/shelves/internal/lock"
	"github.com/0viii0viii/shelves/internal/logger"
	"github.com/0viii0viii/shelves/internal/migrator"
	"github.com/0viii0viii/shelves/internal/schema"
)

func latestSchema() int64 { return schema.Latest() }

// session is an open, locked database.
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *sql.DB
	runner *migrator.Runner
	lock   *lock.Instance
}

func (s *session) Close() {
	_ = s.db.Close()
	_ = s.lock.Release()
}

// openSession takes the instance lock, opens the database and checks that
// foreign keys are enforced.
func openSession(ctx context.Context, cfg *config.Config, log *logger.Logger) (*session, error) {
	l := lock.New(cfg.LockPath())
	if err := l.Acquire(ctx, cfg.LockTimeout()); err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, exit(exitLocked, err)
		}
		return nil, exit(exitFail, err)
	}
	database, err := db.OpenSQLite(ctx, cfg.DBPath())
	if err != nil {
		_ = l.Release()
		return nil, exit(exitFail, err)
	}
	if err := db.RequireForeignKeys(ctx, database); err != nil {
		_ = database.Close()
		_ = l.Release()
		return nil, exit(exitFail, err)
	}
	log.Debug("database opened", map[string]any{"path": cfg.DBPath()})
	return &session{
		cfg:    cfg,
		log:    log,
		db:     database,
		runner: migrator.NewRunner(database, cfg.MigrationsTable, cfg.AppliedBy),
		lock:   l,
	}, nil
}

// progressLogger logs each migration step under prefix.
func progressLogger(log *logger.Logger, prefix string) migrator.Progress {
	return func(stage string, m migrator.Migration, row *migrator.Row, err error) {
		fields := map[string]any{"version": m.Version, "description": m.Description}
		if row != nil {
			fields["order"] = row.ExecutionOrder
		}
		switch stage {
		case "start":
			log.Debug(prefix+".start", fields)
		case "success":
			if row != nil && row.DurationMS > 0 {
				fields["duration_ms"] = row.DurationMS
			}
			log.Info(prefix+".success", fields)
		case "error":
			fields["error"] = err.Error()
			log.Error(prefix+".error", fields)
		}
	}
}

// migrateUp applies pending versions, mapping drift and plan errors to their
// exit codes.
func migrateUp(ctx context.Context, s *session, dryRun bool) ([]migrator.Row, error) {
	if err := s.runner.Ensure(ctx); err != nil {
		return nil, exit(exitFail, err)
	}
	plan, err := migrator.BuildPlan(ctx, schema.Migrations(), s.runner.Storage)
	if err != nil {
		if errors.Is(err, migrator.ErrDrift) {
			return nil, exit(exitDrift, err)
		}
		return nil, exit(exitPlanError, err)
	}
	if unknown := plan.Unknown(); len(unknown) > 0 {
		s.log.Warn("database has versions this build does not know", map[string]any{"versions": unknown})
	}
	applied, err := s.runner.ApplyUp(ctx, plan.Pending, dryRun, progressLogger(s.log, "migrate"))
	if err != nil {
		return applied, exit(exitFail, err)
	}
	return applied, nil
}

type dbRunner func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error

// withSession wraps fn with config loading, the instance lock and the
// database connection.
func withSession(fn dbRunner) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx, cfg, log)
		if err != nil {
			log.Error("open database failed", logger.Err(err))
			return err
		}
		defer s.Close()
		if err := fn(ctx, cmd, s, args); err != nil {
			log.Error(cmd.Name()+" failed", logger.Err(err))
			return err
		}
		return nil
	}
}

func newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance commands",
	}
	var dryRun bool

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, _ []string) error {
			applied, err := migrateUp(ctx, s, dryRun)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				s.log.Info("no pending migrations", nil)
				return nil
			}
			s.log.Info("up complete", map[string]any{"applied": len(applied), "dry_run": dryRun})
			return nil
		}),
	}

	downCmd := &cobra.Command{
		Use:   "down <n|all>",
		Short: "Roll back the newest n applied migrations",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, args []string) error {
			n, err := parseSteps(args[0])
			if err != nil {
				return exit(exitPlanError, err)
			}
			rows, err := s.runner.Down(ctx, n, schema.Rollbacks(), dryRun, progressLogger(s.log, "migrate.down"))
			if err != nil {
				return exit(exitFail, err)
			}
			if len(rows) == 0 {
				s.log.Info("nothing to roll back", nil)
				return nil
			}
			s.log.Info("down complete", map[string]any{"reverted": len(rows), "dry_run": dryRun})
			return nil
		}),
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			items, err := s.runner.Status(ctx, schema.Migrations())
			if err != nil {
				return exit(exitFail, err)
			}
			printStatus(cmd, s.log, items)
			return nil
		}),
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the database matches this build's schema",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, _ []string) error {
			return verify(ctx, s)
		}),
	}

	repairCmd := &cobra.Command{
		Use:   "repair",
		Short: "Rewrite stored checksums to match this build",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, _ []string) error {
			if err := s.runner.Ensure(ctx); err != nil {
				return exit(exitFail, err)
			}
			changed, err := s.runner.Repair(ctx, schema.Migrations(), dryRun)
			if err != nil {
				return exit(exitFail, err)
			}
			s.log.Info("repair complete", map[string]any{"updated": changed, "dry_run": dryRun})
			return nil
		}),
	}

	for _, c := range []*cobra.Command{upCmd, downCmd, repairCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "plan only; do not execute SQL")
	}
	dbCmd.AddCommand(upCmd, downCmd, statusCmd, verifyCmd, repairCmd)
	return dbCmd
}

func parseSteps(arg string) (int, error) {
	if strings.EqualFold(arg, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("down takes a positive number or 'all', got %q", arg)
	}
	return n, nil
}

// verify reports drift, unknown versions, pending versions and missing tables.
func verify(ctx context.Context, s *session) error {
	items, err := s.runner.Status(ctx, schema.Migrations())
	if err != nil {
		return exit(exitFail, err)
	}
	var problems []string
	for _, it := range items {
		if it.State != migrator.StateApplied {
			problems = append(problems, fmt.Sprintf("version %d is %s", it.Version, it.State))
		}
	}
	for _, table := range []string{"todos", "notes", "memos"} {
		cols, err := db.TableColumns(ctx, s.db, table)
		if err != nil {
			return exit(exitFail, err)
		}
		if len(cols) == 0 {
			problems = append(problems, "table "+table+" is missing")
		}
	}
	if len(problems) > 0 {
		for _, p := range problems {
			s.log.Warn("verify", map[string]any{"problem": p})
		}
		return exit(exitDrift, fmt.Errorf("schema does not match: %d problem(s)", len(problems)))
	}
	s.log.Info("verify ok", map[string]any{"schema": schema.Latest(), "checked_at": time.Now().UTC().Format(time.RFC3339)})
	return nil
}
