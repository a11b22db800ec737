// Package config loads engine configuration from a YAML file and MASTERY_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	// Embedded zoneinfo so streak.timezone resolves on minimal hosts.
	_ "time/tzdata"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. MASTERY_STREAK_DAILY_GOAL.
const EnvPrefix = "MASTERY"

// Config holds all engine configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Catalog    CatalogConfig    `mapstructure:"catalog" yaml:"catalog"`
	Mastery    MasteryConfig    `mapstructure:"mastery" yaml:"mastery"`
	Statistics StatisticsConfig `mapstructure:"statistics" yaml:"statistics"`
	Streak     StreakConfig     `mapstructure:"streak" yaml:"streak"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`
	// DSN is the data source name. For sqlite an empty DSN resolves to the
	// default database path.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// StatementTimeout bounds every storage call whose context has no deadline.
	StatementTimeout time.Duration `mapstructure:"statement_timeout" yaml:"statement_timeout"`
}

// CatalogConfig points at the competency/topic/question seed file.
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MasteryConfig bounds levels and drives promotion.
type MasteryConfig struct {
	// MaxLevel is the highest valid level; levels live in [0, MaxLevel].
	MaxLevel int `mapstructure:"max_level" yaml:"max_level"`
	// MasteredLevel is the cutoff at which a competency counts as mastered
	// for topic progress.
	MasteredLevel int `mapstructure:"mastered_level" yaml:"mastered_level"`
	// ProblemsPerLevel is how many lifetime answers each promotion requires.
	ProblemsPerLevel int `mapstructure:"problems_per_level" yaml:"problems_per_level"`
	// PromotionAccuracy is the minimum lifetime accuracy (0.0-1.0) to promote.
	PromotionAccuracy float64 `mapstructure:"promotion_accuracy" yaml:"promotion_accuracy"`
}

// StatisticsConfig controls presentation rounding.
type StatisticsConfig struct {
	// AccuracyDecimals is the number of decimals kept in percentages.
	AccuracyDecimals int `mapstructure:"accuracy_decimals" yaml:"accuracy_decimals"`
}

// StreakConfig controls the daily goal.
type StreakConfig struct {
	DailyGoal int `mapstructure:"daily_goal" yaml:"daily_goal"`
	// Timezone is an IANA name used to decide calendar days.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// SessionConfig is the composition policy.
type SessionConfig struct {
	// LevelWeights[i] is the weight of level i; levels past the end use the
	// last entry.
	LevelWeights []float64 `mapstructure:"level_weights" yaml:"level_weights"`
	// RedistributeShortfall moves a bucket's missing questions to other
	// buckets instead of failing.
	RedistributeShortfall bool `mapstructure:"redistribute_shortfall" yaml:"redistribute_shortfall"`
	// DefaultMaxQuestions is used when a caller does not specify a size.
	DefaultMaxQuestions int `mapstructure:"default_max_questions" yaml:"default_max_questions"`
}

// ServerConfig is the HTTP adapter configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           "sqlite",
			StatementTimeout: 5 * time.Second,
		},
		Catalog: CatalogConfig{Path: "catalog.yaml"},
		Mastery: MasteryConfig{
			MaxLevel:          5,
			MasteredLevel:     3,
			ProblemsPerLevel:  5,
			PromotionAccuracy: 0.8,
		},
		Statistics: StatisticsConfig{AccuracyDecimals: 0},
		Streak: StreakConfig{
			DailyGoal: 20,
			Timezone:  "UTC",
		},
		Session: SessionConfig{
			LevelWeights:        []float64{4, 3, 2, 1},
			DefaultMaxQuestions: 10,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration from path (if non-empty and present) and merges
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every default key so AutomaticEnv can override keys
// that are absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.statement_timeout", d.Database.StatementTimeout)
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("mastery.max_level", d.Mastery.MaxLevel)
	v.SetDefault("mastery.mastered_level", d.Mastery.MasteredLevel)
	v.SetDefault("mastery.problems_per_level", d.Mastery.ProblemsPerLevel)
	v.SetDefault("mastery.promotion_accuracy", d.Mastery.PromotionAccuracy)
	v.SetDefault("statistics.accuracy_decimals", d.Statistics.AccuracyDecimals)
	v.SetDefault("streak.daily_goal", d.Streak.DailyGoal)
	v.SetDefault("streak.timezone", d.Streak.Timezone)
	v.SetDefault("session.level_weights", d.Session.LevelWeights)
	v.SetDefault("session.redistribute_shortfall", d.Session.RedistributeShortfall)
	v.SetDefault("session.default_max_questions", d.Session.DefaultMaxQuestions)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q: want sqlite or postgres", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required for postgres")
	}
	if c.Mastery.MaxLevel < 1 {
		errs = append(errs, "mastery.max_level must be >= 1")
	}
	if c.Mastery.MasteredLevel < 0 || c.Mastery.MasteredLevel > c.Mastery.MaxLevel {
		errs = append(errs, fmt.Sprintf("mastery.mastered_level must be in [0, %d]", c.Mastery.MaxLevel))
	}
	if c.Mastery.ProblemsPerLevel <= 0 {
		errs = append(errs, "mastery.problems_per_level must be > 0")
	}
	if c.Mastery.PromotionAccuracy < 0 || c.Mastery.PromotionAccuracy > 1 {
		errs = append(errs, "mastery.promotion_accuracy must be in [0, 1]")
	}
	if c.Statistics.AccuracyDecimals < 0 || c.Statistics.AccuracyDecimals > 6 {
		errs = append(errs, "statistics.accuracy_decimals must be in [0, 6]")
	}
	if c.Streak.DailyGoal <= 0 {
		errs = append(errs, "streak.daily_goal must be > 0")
	}
	if _, err := time.LoadLocation(c.Streak.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("streak.timezone %q: %v", c.Streak.Timezone, err))
	}
	if len(c.Session.LevelWeights) == 0 {
		errs = append(errs, "session.level_weights must not be empty")
	}
	for i, w := range c.Session.LevelWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("session.level_weights[%d] must be >= 0", i))
		}
	}
	if c.Session.DefaultMaxQuestions <= 0 {
		errs = append(errs, "session.default_max_questions must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Location returns the streak time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Streak.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WriteFile writes c as YAML to path.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
