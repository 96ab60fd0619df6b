package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/0viii0viii/shelves/internal/db"
	"github.com/0viii0viii/shelves/internal/lock"
	"github.com/0viii0viii/shelves/internal/schema"
)

// Config is resolved in layers: defaults, YAML file, .env file, environment,
// then command-line flags applied by the caller.
type Config struct {
	DataDir         string `yaml:"data_dir" env:"SHELVES_DATA_DIR"`
	DBFile          string `yaml:"db_file" env:"SHELVES_DB_FILE"`
	Listen          string `yaml:"listen" env:"SHELVES_LISTEN"`
	JSON            bool   `yaml:"json" env:"SHELVES_LOG_JSON"`
	LogLevel        string `yaml:"log_level" env:"SHELVES_LOG_LEVEL"`
	SplashDelayMS   int    `yaml:"splash_delay_ms" env:"SHELVES_SPLASH_DELAY_MS"`
	LockTimeoutSec  int    `yaml:"lock_timeout_sec" env:"LOCK_TIMEOUT_SEC"`
	MigrationsTable string `yaml:"migrations_table" env:"MIGRATIONS_TABLE"`
	AppliedBy       string `yaml:"applied_by" env:"APPLIED_BY"`
}

func Default() *Config {
	return &Config{
		DataDir:         ".",
		DBFile:          schema.DatabaseFile,
		Listen:          "127.0.0.1:1420",
		LogLevel:        "info",
		SplashDelayMS:   2000,
		LockTimeoutSec:  5,
		MigrationsTable: "schema_migrations",
	}
}

func LoadYAML(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// MergeEnv overlays environment variables; unset variables keep the current value.
func MergeEnv(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load runs the file and environment layers.
func Load(yamlPath, dotenvPath string) (*Config, error) {
	cfg, err := LoadYAML(yamlPath)
	if err != nil {
		return nil, err
	}
	if err := LoadDotEnv(dotenvPath); err != nil {
		return nil, err
	}
	return MergeEnv(cfg)
}

var ErrNotLoopback = errors.New("listen address must be a loopback address")

func (c *Config) Validate() error {
	if c.DBFile == "" {
		return errors.New("db_file is required")
	}
	if err := db.ValidateTableName(c.MigrationsTable); err != nil {
		return err
	}
	if c.SplashDelayMS < 0 {
		return fmt.Errorf("splash_delay_ms must not be negative, got %d", c.SplashDelayMS)
	}
	host, _, err := net.SplitHostPort(c.Listen)
	if err != nil {
		return fmt.Errorf("listen %q: %w", c.Listen, err)
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("%w: %q", ErrNotLoopback, c.Listen)
		}
	}
	return nil
}

func (c *Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// LockPath is the instance lock file that sits next to the database.
func (c *Config) LockPath() string { return lock.PathFor(c.DBPath()) }

// LockTimeout is how long to wait for the instance lock. Zero or less means
// a single attempt.
func (c *Config) LockTimeout() time.Duration {
	if c.LockTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.LockTimeoutSec) * time.Second
}

func (c *Config) SplashDelay() time.Duration {
	return time.Duration(c.SplashDelayMS) * time.Millisecond
}
