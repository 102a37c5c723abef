// Package catalog is the durable store for providers, profiles, groups,
// channels, filters, fetch-run history, and snapshot metadata. It is the
// single source of truth the Reconciler, Snapshot Builder, Refresh
// Coordinator, and status endpoint all read and write through.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/m3undle/lineup/internal/persistence/sqlite"
)

// Config controls the underlying SQLite connection pool.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig mirrors the pool sizing used elsewhere in this codebase:
// a generous read pool, since only refresh-scoped writes are serialized.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 25,
	}
}

// Store wraps a *sql.DB opened against the catalog database, with WAL mode
// and foreign keys enforced on every connection in the pool.
type Store struct {
	db *sql.DB
}

// Open opens (and, if necessary, creates and migrates) the catalog database
// at path, delegating pool setup and PRAGMA enforcement to
// internal/persistence/sqlite so every caller of a SQLite database in this
// daemon gets the same WAL/busy-timeout/foreign-key posture.
func Open(ctx context.Context, path string, cfg Config) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.Config{BusyTimeout: cfg.BusyTimeout, MaxOpenConns: cfg.MaxOpenConns})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for callers that need a raw *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside one transaction, committing on success and rolling
// back on any error or panic. The Reconciler's five ordered steps and the
// Snapshot Builder's promotion step both use this to get one logical write.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("catalog: rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}
