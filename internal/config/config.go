package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration for bayclock, stored in
// ~/.bayclock/config.yaml. Every field can be overridden from the environment.
type Config struct {
	Env       string          `yaml:"env" env:"BAYCLOCK_ENV" env-default:"local"`
	DataDir   string          `yaml:"data_dir" env:"BAYCLOCK_DATA_DIR"`
	Log       LogConfig       `yaml:"log"`
	Backend   BackendConfig   `yaml:"backend"`
	User      UserConfig      `yaml:"user"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Timesheet TimesheetConfig `yaml:"timesheet"`
	Server    ServerConfig    `yaml:"server"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level" env:"BAYCLOCK_LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"BAYCLOCK_LOG_FORMAT" env-default:"console"`
}

// Backend kinds.
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// BackendConfig selects where entries live.
type BackendConfig struct {
	Kind    string `yaml:"kind" env:"BAYCLOCK_BACKEND" env-default:"sqlite"`
	URL     string `yaml:"url" env:"BAYCLOCK_SUPABASE_URL"`
	AnonKey string `yaml:"anon_key" env:"BAYCLOCK_SUPABASE_ANON_KEY"`
	// Timeout is the HTTP timeout in seconds.
	Timeout int `yaml:"timeout" env:"BAYCLOCK_BACKEND_TIMEOUT" env-default:"15"`
}

// UserConfig identifies the local user for the sqlite backend.
type UserConfig struct {
	ID    string `yaml:"id" env:"BAYCLOCK_USER_ID" env-default:"local"`
	Email string `yaml:"email" env:"BAYCLOCK_USER_EMAIL"`
	Role  string `yaml:"role" env:"BAYCLOCK_USER_ROLE" env-default:"user"`
}

// CalendarConfig is the week grid geometry.
type CalendarConfig struct {
	HourHeight     float64 `yaml:"hour_height" env:"BAYCLOCK_CALENDAR_HOUR_HEIGHT" env-default:"48"`
	HeaderOffset   float64 `yaml:"header_offset" env:"BAYCLOCK_CALENDAR_HEADER_OFFSET" env-default:"50"`
	MinBlockHeight float64 `yaml:"min_block_height" env:"BAYCLOCK_CALENDAR_MIN_BLOCK_HEIGHT" env-default:"28"`
	// WeekStartsOn is 0 for Sunday through 6 for Saturday.
	WeekStartsOn int `yaml:"week_starts_on" env:"BAYCLOCK_CALENDAR_WEEK_STARTS_ON" env-default:"0"`
}

// TimesheetConfig configures the weekly report.
type TimesheetConfig struct {
	WeekStartsOn int `yaml:"week_starts_on" env:"BAYCLOCK_TIMESHEET_WEEK_STARTS_ON" env-default:"1"`
	TopProjects  int `yaml:"top_projects" env:"BAYCLOCK_TIMESHEET_TOP_PROJECTS" env-default:"5"`
}

// ServerConfig configures `bayclock serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"BAYCLOCK_SERVER_ADDR" env-default:"localhost:8787"`
}

// configTemplate is the annotated config written on first run.
const configTemplate = `# bayclock configuration
#
# All settings are optional. Every value can also be set through the
# BAYCLOCK_* environment variables.

env: local

# Where the database, timer state and auth tokens live. Empty = ~/.bayclock
data_dir: ""

log:
  # debug, info, warn or error
  level: warn
  # console or json
  format: console

backend:
  # sqlite keeps everything on this machine; supabase talks to a hosted project.
  kind: sqlite
  url: ""
  anon_key: ""
  timeout: 15

user:
  id: local
  email: ""
  role: user

calendar:
  hour_height: 48
  header_offset: 50
  min_block_height: 28
  # 0 = Sunday, 1 = Monday
  week_starts_on: 0

timesheet:
  week_starts_on: 1
  top_projects: 5

server:
  addr: localhost:8787
`

// BaseDir returns the default data directory (~/.bayclock).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".bayclock"), nil
}

// DefaultPath returns ~/.bayclock/config.yaml.
func DefaultPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config at path, creating it with annotated defaults on first
// run. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if writeErr := writeDefault(path); writeErr != nil {
			// Fall back to defaults and environment only.
			var cfg Config
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return nil, fmt.Errorf("reading environment: %w", err)
			}
			return finish(&cfg)
		}
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.DataDir == "" {
		base, err := BaseDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = base
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cleanenv cannot.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendSQLite:
	case BackendSupabase:
		if c.Backend.URL == "" || c.Backend.AnonKey == "" {
			return fmt.Errorf("backend %q needs url and anon_key", c.Backend.Kind)
		}
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if c.Calendar.WeekStartsOn < 0 || c.Calendar.WeekStartsOn > 6 {
		return fmt.Errorf("calendar.week_starts_on must be 0-6, got %d", c.Calendar.WeekStartsOn)
	}
	if c.Timesheet.WeekStartsOn < 0 || c.Timesheet.WeekStartsOn > 6 {
		return fmt.Errorf("timesheet.week_starts_on must be 0-6, got %d", c.Timesheet.WeekStartsOn)
	}
	return nil
}

// StoragePath is the SQLite database file.
func (c *Config) StoragePath() string {
	return filepath.Join(c.DataDir, "bayclock.db")
}

// TimerPath is the running timer state file.
func (c *Config) TimerPath() string {
	return filepath.Join(c.DataDir, "timer.json")
}

// TokenPath is the stored Supabase session.
func (c *Config) TokenPath() string {
	return filepath.Join(c.DataDir, "auth", "supabase_token.json")
}

// BackendTimeout returns the HTTP timeout as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.Timeout) * time.Second
}

// CalendarWeekStart is the first weekday of the calendar view.
func (c *Config) CalendarWeekStart() time.Weekday {
	return time.Weekday(c.Calendar.WeekStartsOn)
}

// TimesheetWeekStart is the first weekday of reports.
func (c *Config) TimesheetWeekStart() time.Weekday {
	return time.Weekday(c.Timesheet.WeekStartsOn)
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
