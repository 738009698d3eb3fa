package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Veraticus/ha-outliers/internal/config"
	"github.com/Veraticus/ha-outliers/internal/service"
	"github.com/go-sql-driver/mysql"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLStorage implements service.Storage against a Home Assistant recorder database.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
	// memory databases exist per connection and must stay on one.
	memory bool
}

// Open connects to the database described by profile. Establishing the
// connection is bounded by timeout.
func Open(ctx context.Context, profile config.Profile, timeout time.Duration) (*SQLStorage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	switch profile.Driver {
	case config.DriverSQLite:
		path := config.ExpandPath(profile.Path)
		// Never create an empty database in place of the recorder file.
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("database file %s does not exist", path)
			}
			return nil, fmt.Errorf("failed to stat database: %w", err)
		}
		return openSQLite(ctx, path, timeout)
	default:
		return openMySQL(ctx, profile, timeout)
	}
}

// OpenSQLite opens a SQLite recorder database at path (":memory:" is allowed).
func OpenSQLite(ctx context.Context, path string) (*SQLStorage, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	return openSQLite(ctx, path, 10*time.Second)
}

func openSQLite(ctx context.Context, path string, timeout time.Duration) (*SQLStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection until a scan widens the pool; writes are serialized anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s, err := connect(ctx, db, sqliteDialect, timeout)
	if err != nil {
		return nil, err
	}
	s.memory = path == ":memory:"
	return s, nil
}

func openMySQL(ctx context.Context, profile config.Profile, timeout time.Duration) (*SQLStorage, error) {
	cfg := mysql.NewConfig()
	cfg.User = profile.User
	cfg.Passwd = profile.Password
	cfg.Net = "tcp"
	cfg.Addr = profile.Address()
	cfg.DBName = profile.Database
	cfg.Timeout = timeout
	// Report matched rows so edits to an identical value still count as affected.
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection until a scan widens the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return connect(ctx, db, mysqlDialect, timeout)
}

func connect(ctx context.Context, db *sql.DB, d dialect, timeout time.Duration) (*SQLStorage, error) {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStorage{db: db, dialect: d}, nil
}

// SetPoolSize lets up to n queries run concurrently, e.g. one per scan worker.
// In-memory SQLite databases always keep a single connection.
func (s *SQLStorage) SetPoolSize(n int) {
	if n < 1 || s.memory {
		n = 1
	}
	s.db.SetMaxOpenConns(n)
	s.db.SetMaxIdleConns(n)
}

// DB exposes the underlying handle.
func (s *SQLStorage) DB() *sql.DB {
	return s.db
}

// Ping checks that the connection is still alive.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return wrapErr("ping", s.db.PingContext(ctx))
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

var _ service.Storage = (*SQLStorage)(nil)
