package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abhisek/mastery/internal/app"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/abhisek/mastery/internal/config"
	"github.com/abhisek/mastery/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "mastery",
	Short:        "Competency mastery and adaptive practice engine",
	Long:         "mastery tracks per-competency mastery levels, answer statistics and study streaks, and composes practice sessions biased toward weak competencies.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (env overrides use the MASTERY_ prefix)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MASTERY_DB env var)")
	rootCmd.PersistentFlags().String("catalog", "", "Path to catalog seed file (overrides catalog.path)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config and applies the --db and --catalog overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		cfg.Catalog.Path = p
	}
	if cfg.Database.Driver == store.DriverSQLite {
		dsn, err := resolveDBPath(cmd, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		cfg.Database.DSN = dsn
	}
	setupLogging(cfg.Logging)
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured DSN, then MASTERY_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, nil
	}
	return store.DefaultDBPath()
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// openEngine loads config, opens the store and catalog and builds the
// engine. The returned cleanup closes the store.
func openEngine(cmd *cobra.Command) (*app.Engine, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	st, err := store.Open(store.Options{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	engine, err := app.New(app.Options{Config: cfg, Store: st, Catalog: cat})
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	log.Debug().
		Str("catalog", cfg.Catalog.Path).
		Int("competencies", len(cat.Competencies())).
		Int("questions", cat.QuestionCount()).
		Msg("engine ready")

	return engine, func() { st.Close() }, nil
}
