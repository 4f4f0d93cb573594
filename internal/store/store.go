// Package store is the embedded relational store for projects, tasks,
// and predecessor links. It wraps modernc.org/sqlite the same way the
// teacher's internal/db package wraps it: WAL mode, foreign keys on,
// one transaction per API call, scanned rows converted at the edge.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jra3/scheduled/internal/apperr"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const maxBusyRetries = 3

// Store wraps database operations for the scheduling engine. Writes to a
// single project are serialized by a per-project lock held for the
// duration of a transaction; a project-switch operation takes storeMu
// (the whole-store lock) because it toggles the active flag on two rows.
type Store struct {
	db *sql.DB

	storeMu  sync.Mutex
	projMu   map[string]*sync.Mutex
	projMuMu sync.Mutex
}

// Open opens or creates a SQLite database at the given path. If the
// existing database has an incompatible schema, the file is deleted and
// recreated empty; its data is not migrated.
func Open(dbPath string) (*Store, error) {
	s, err := openDB(dbPath)
	if err != nil {
		if isSchemaMismatch(err) {
			if removeErr := os.Remove(dbPath); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, apperr.Internal(removeErr, "remove incompatible store %s", dbPath)
			}
			os.Remove(dbPath + "-wal")
			os.Remove(dbPath + "-shm")
			return openDB(dbPath)
		}
		return nil, err
	}
	return s, nil
}

func isSchemaMismatch(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "SQL logic error")
}

func openDB(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperr.Internal(err, "create store directory %s", dir)
		}
	}

	escaped := strings.ReplaceAll(dbPath, " ", "%20")
	connStr := "file:" + escaped + "?_time_format=sqlite"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, apperr.Internal(err, "open store %s", dbPath)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, apperr.Internal(err, "enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, apperr.Internal(err, "enable foreign keys")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, apperr.Internal(err, "initialize schema")
	}

	return &Store{db: db, projMu: make(map[string]*sync.Mutex)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for raw queries beyond the
// functions in queries.go.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) projectLock(projectID string) *sync.Mutex {
	s.projMuMu.Lock()
	defer s.projMuMu.Unlock()
	mu, ok := s.projMu[projectID]
	if !ok {
		mu = &sync.Mutex{}
		s.projMu[projectID] = mu
	}
	return mu
}

// WithProjectTx runs fn within a transaction while holding the
// per-project write lock, retrying a bounded number of times on
// transient "database is locked" contention.
func (s *Store) WithProjectTx(ctx context.Context, projectID string, fn func(*sql.Tx) error) error {
	mu := s.projectLock(projectID)
	mu.Lock()
	defer mu.Unlock()
	return s.withTxRetry(ctx, fn)
}

// WithStoreTx runs fn within a transaction while holding the whole-store
// lock, used for operations that touch more than one project's active
// flag (project-switch, project-delete affecting the active pointer).
func (s *Store) WithStoreTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	return s.withTxRetry(ctx, fn)
}

func (s *Store) withTxRetry(ctx context.Context, fn func(*sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return apperr.Cancelled(err)
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			lastErr = err
			if isBusy(err) {
				continue
			}
			return apperr.Internal(err, "begin transaction")
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			if isBusy(err) && attempt < maxBusyRetries-1 {
				lastErr = err
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				lastErr = err
				continue
			}
			return apperr.Internal(err, "commit transaction")
		}
		return nil
	}
	return apperr.Conflict("store contention after %d attempts: %v", maxBusyRetries, lastErr)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Now returns the current time formatted for SQLite storage: UTC,
// monotonic reading stripped, so stored timestamps stay comparable.
func Now() time.Time {
	return time.Now().UTC().Round(0)
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	return filepath.Join(configDir, "scheduled", "schedule.db")
}

func wrapNoRows(err error, format string, args ...any) error {
	if err == sql.ErrNoRows {
		return apperr.NotFound(fmt.Sprintf(format, args...))
	}
	return apperr.Internal(err, format, args...)
}
