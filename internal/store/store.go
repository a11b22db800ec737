package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/abhisek/mastery/ent"
	"github.com/rs/zerolog/log"

	// Postgres driver for the hosted backend.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultStatementTimeout applies when neither the caller's context nor
// Options set a deadline.
const DefaultStatementTimeout = 5 * time.Second

// Options configures Open.
type Options struct {
	Driver           string
	DSN              string
	StatementTimeout time.Duration
}

// Store holds the ent client and provides access to repositories.
type Store struct {
	db      *sql.DB
	client  *ent.Client
	dialect string
	timeout time.Duration
}

// Open connects to the database described by opts, applies driver-specific
// settings and runs auto-migration.
func Open(opts Options) (*Store, error) {
	var (
		db          *sql.DB
		err         error
		dialectName string
	)

	switch opts.Driver {
	case DriverSQLite, "":
		dialectName = dialect.SQLite
		db, err = sql.Open("sqlite", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// SQLite allows one writer; a single connection turns lock
		// contention into queueing instead of SQLITE_BUSY errors.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	case DriverPostgres:
		dialectName = dialect.Postgres
		db, err = sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	drv := entsql.OpenDB(dialectName, db)
	client := ent.NewClient(ent.Driver(drv))

	timeout := opts.StatementTimeout
	if timeout <= 0 {
		timeout = DefaultStatementTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*timeout)
	defer cancel()
	if err := client.Schema.Create(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Debug().Str("driver", dialectName).Msg("store opened")
	return &Store{db: db, client: client, dialect: dialectName, timeout: timeout}, nil
}

// Client returns the underlying ent client.
func (s *Store) Client() *ent.Client {
	return s.client
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name in use.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return classify("store.Ping", s.db.PingContext(ctx))
}

// MasteryRepo returns a MasteryRepo backed by this store.
func (s *Store) MasteryRepo() MasteryRepo {
	return &masteryRepo{s: s}
}

// StatisticsRepo returns a StatisticsRepo backed by this store.
func (s *Store) StatisticsRepo() StatisticsRepo {
	return &statisticsRepo{s: s}
}

// StreakRepo returns a StreakRepo backed by this store.
func (s *Store) StreakRepo() StreakRepo {
	return &streakRepo{s: s}
}

// SessionRepo returns a SessionRepo backed by this store.
func (s *Store) SessionRepo() SessionRepo {
	return &sessionRepo{s: s}
}

// withTimeout bounds ctx by the statement timeout unless the caller
// already set a deadline.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// applyPragmas configures SQLite for concurrent request handling.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. MASTERY_DB environment variable
// 2. $XDG_DATA_HOME/mastery/mastery.db
// 3. ~/.local/share/mastery/mastery.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MASTERY_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "mastery", "mastery.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
