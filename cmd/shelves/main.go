// Command shelves runs the Shelves backend and its database maintenance commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"

	"github.com/0viii0viii/shelves/internal/config"
	"github.com/0viii0viii/shelves/internal/logger"
)

const (
	exitOK        = 0
	exitDrift     = 2
	exitLocked    = 3
	exitFail      = 4
	exitPlanError = 5
)

var version = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exit(code int, err error) error { return &exitError{code: code, err: err} }

type globalFlags struct {
	configPath  string
	envFile     string
	dataDir     string
	dbFile      string
	listen      string
	jsonLogs    bool
	logLevel    string
	lockTimeout int
	table       string
	appliedBy   string
}

var flags globalFlags

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintln(os.Stderr, err)
	return exitPlanError
}

func newRootCmd() *cobra.Command {
	flags = globalFlags{}
	root := &cobra.Command{
		Use:           "shelves",
		Short:         "Shelves notes and todos backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "optional YAML config path")
	pf.StringVar(&flags.envFile, "env-file", ".env", "optional dotenv file")
	pf.StringVar(&flags.dataDir, "data-dir", "", "directory holding the database (or SHELVES_DATA_DIR)")
	pf.StringVar(&flags.dbFile, "db", "", "database file name or path (or SHELVES_DB_FILE)")
	pf.StringVar(&flags.listen, "listen", "", "loopback API address (or SHELVES_LISTEN)")
	pf.BoolVar(&flags.jsonLogs, "json", false, "JSON logs")
	pf.StringVar(&flags.logLevel, "log-level", "", "info or debug")
	pf.IntVar(&flags.lockTimeout, "lock-timeout", 0, "instance lock timeout in seconds, 0 tries once (or LOCK_TIMEOUT_SEC)")
	pf.StringVar(&flags.table, "table", "", "migrations table name")
	pf.StringVar(&flags.appliedBy, "applied-by", "", "override applied_by")

	root.AddCommand(newServeCmd(), newDBCmd(), newOpenCmd(), newVersionCmd())
	return root
}

// loadConfig resolves the config layers and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return nil, nil, exit(exitPlanError, err)
	}
	set := cmd.Flags().Changed
	if set("data-dir") {
		cfg.DataDir = flags.dataDir
	}
	if set("db") {
		cfg.DBFile = flags.dbFile
	}
	if set("listen") {
		cfg.Listen = flags.listen
	}
	if set("json") {
		cfg.JSON = flags.jsonLogs
	}
	if set("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if set("lock-timeout") {
		cfg.LockTimeoutSec = flags.lockTimeout
	}
	if set("table") {
		cfg.MigrationsTable = flags.table
	}
	if set("applied-by") {
		cfg.AppliedBy = flags.appliedBy
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, exit(exitPlanError, err)
	}
	debug, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, exit(exitPlanError, err)
	}
	log := logger.NewWriter(cmd.OutOrStdout(), cfg.JSON)
	log.SetDebug(debug)
	return cfg, log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build and schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "shelves %s (schema %d)\n", version.String(), latestSchema())
			return nil
		},
	}
}

const shutdownTimeout = 5 * time.Second
