package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bayclock/bayclock/internal/backend"
	"github.com/bayclock/bayclock/internal/config"
	"github.com/bayclock/bayclock/internal/logger"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/store"
	"github.com/bayclock/bayclock/internal/supabase"
	"github.com/bayclock/bayclock/internal/timer"
)

// Exit codes.
const (
	exitUsage   = 1
	exitBackend = 2
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "bayclock",
	Short: "BayClock – track time against projects",
	Long: `bayclock tracks time entries against projects, either in a local
SQLite database under ~/.bayclock/ or in a hosted Supabase project.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.bayclock/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
}

// exitErr prints err to stderr and exits with code.
func exitErr(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

// app bundles what a command needs once config is loaded.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	backend backend.Backend
	// local is set when the backend is the SQLite store.
	local *store.Store
	timer *timer.Store
	// unwatch removes the timer debug listener.
	unwatch func()
}

func (a *app) Close() {
	if a.unwatch != nil {
		a.unwatch()
	}
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			a.log.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// loadConfig reads the config and builds the logger. Errors exit with the
// usage code since they come from the user's files or environment.
func loadConfig() (*config.Config, *logger.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr(exitUsage, err)
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		exitErr(exitUsage, err)
	}
	return cfg, log
}

// mustApp loads config and opens the configured backend and timer.
func mustApp(ctx context.Context) *app {
	cfg, log := loadConfig()
	a := &app{cfg: cfg, log: log}

	t, err := timer.Open(cfg.TimerPath())
	if err != nil {
		exitErr(exitBackend, err)
	}
	a.timer = t
	a.unwatch = logTimerChanges(t, log.Logger)

	switch cfg.Backend.Kind {
	case config.BackendSupabase:
		client, err := openSupabase(ctx, cfg, log)
		if err != nil {
			exitErr(exitBackend, err)
		}
		a.backend = client
	default:
		local, err := openLocal(cfg, log)
		if err != nil {
			exitErr(exitBackend, err)
		}
		a.local = local
		a.backend = local
	}

	log.Debug("Backend ready", zap.String("kind", cfg.Backend.Kind), zap.String("data_dir", cfg.DataDir))
	return a
}

// logTimerChanges logs every timer state change at debug level.
func logTimerChanges(t *timer.Store, log *zap.Logger) func() {
	return t.Subscribe(func(st timer.State) {
		if !st.Running {
			log.Debug("Timer cleared")
			return
		}
		log.Debug("Timer started",
			zap.String("project", st.Project),
			zap.String("project_id", st.ProjectID),
			zap.Time("started_at", st.StartedAt))
	})
}

func openLocal(cfg *config.Config, log *logger.Logger) (*store.Store, error) {
	user := model.User{ID: cfg.User.ID, Email: cfg.User.Email, Role: cfg.User.Role}
	return store.New(cfg.StoragePath(), user, log.Logger)
}

func openSupabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*supabase.Client, error) {
	if cfg.Backend.URL == "" || cfg.Backend.AnonKey == "" {
		return nil, errors.New("supabase url and anon_key are not configured")
	}
	tok, err := supabase.LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, fmt.Errorf("%w: not logged in, run `bayclock login --email <address>`", backend.ErrUnauthorized)
	}
	return supabase.NewClient(ctx, tok, supabase.Options{
		BaseURL:   cfg.Backend.URL,
		AnonKey:   cfg.Backend.AnonKey,
		Timeout:   cfg.BackendTimeout(),
		TokenPath: cfg.TokenPath(),
		Logger:    log.Logger,
	}), nil
}

// currentUser resolves the signed-in user, exiting on failure.
func (a *app) currentUser(ctx context.Context) model.User {
	user, err := a.backend.CurrentUser(ctx)
	if err != nil {
		exitErr(exitBackend, err)
	}
	return user
}
