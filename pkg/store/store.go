// Package store implements Wright's package database: installed
// packages, their files, dependency edges, provided virtual names, file
// shadows, assumed packages, and the transaction journal, all persisted
// with a pure-Go SQLite driver.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"golang.org/x/sys/unix"

	_ "modernc.org/sqlite"

	"github.com/wright-pm/wright/pkg/werr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config configures the database connection.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is the package database, single-writer by policy: orchestrator
// installs funnel through the serial install lock held by
// pkg/orchestrator's scheduler, but
// Store itself only enforces the process-wide file lock that prevents
// two wright/wbuild processes from opening the same database path at
// once.
type Store struct {
	db       *sql.DB
	path     string
	lockFile *fileLockHandle
}

// Open opens (creating if necessary) the database at cfg.Path, applies
// WAL-mode pragmas, takes the process-wide advisory lock on the path,
// and runs pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, werr.New(werr.KindDatabase, "database path is required", nil)
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	lock, err := acquireFileLock(cfg.Path + ".lock")
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "another wright process holds the database lock", err)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.release()
		return nil, werr.New(werr.KindDatabase, "failed to open database", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = lock.release()
		return nil, werr.New(werr.KindDatabase, "failed to ping database", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		_ = lock.release()
		return nil, werr.New(werr.KindDatabase, "failed to enable foreign keys", err)
	}

	s := &Store{db: db, path: cfg.Path, lockFile: lock}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = lock.release()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return werr.New(werr.KindDatabase, "failed to load embedded migrations", err)
	}
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return werr.New(werr.KindDatabase, "failed to create migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return werr.New(werr.KindDatabase, "failed to create migration instance", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return werr.New(werr.KindDatabase, "failed to run migrations", err)
	}
	return nil
}

// Close releases the database connection and the process-wide file lock.
func (s *Store) Close() error {
	if s.lockFile != nil {
		_ = s.lockFile.release()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginTx starts a serializable transaction — every multi-row mutation
// in this package runs inside one of these.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to begin transaction", err)
	}
	return tx, nil
}

// fileLock is a tiny wrapper over flock(2), grounded on the spec's
// "process-wide file lock on the database path" requirement.
type fileLockHandle struct {
	fd int
}

func acquireFileLock(path string) (*fileLockHandle, error) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("database is locked by another process: %w", err)
	}
	return &fileLockHandle{fd: fd}, nil
}

func (f *fileLockHandle) release() error {
	if f == nil {
		return nil
	}
	_ = unix.Flock(f.fd, unix.LOCK_UN)
	return unix.Close(f.fd)
}
