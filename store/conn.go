// Package store owns the journal's single SQLite handle. Every other
// package reaches the database through Manager.WithConn or Manager.WithTx;
// the raw handle never leaves this package.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rustyeddy/ftjournal/errs"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Status is the externally visible connection state.
type Status struct {
	Configured bool `json:"configured"`
	Encrypted  bool `json:"encrypted"`
	Unlocked   bool `json:"unlocked"`
}

// Manager moves between Unconfigured, Configured&Locked and
// Configured&Unlocked. One mutex guards the handle and is held for the
// whole of every operation.
type Manager struct {
	mu        sync.Mutex
	db        *sql.DB
	path      string
	encrypted bool
	log       *slog.Logger
}

// NewManager returns an unconfigured Manager.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{log: log.With("component", "store")}
}

// Configure records the database location. It never touches the
// filesystem and does not change whether a handle is open.
func (m *Manager) Configure(path string, encrypted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
	m.encrypted = encrypted
}

// Status reports configured/encrypted/unlocked.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Configured: m.path != "",
		Encrypted:  m.encrypted,
		Unlocked:   m.db != nil,
	}
}

// Path returns the configured database path and encryption flag.
func (m *Manager) Path() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path, m.encrypted
}

// CreateNew creates a database at path. It refuses to touch an existing
// file, creates parent directories, keys the file when encrypted, migrates
// the schema and leaves the manager unlocked.
func (m *Manager) CreateNew(ctx context.Context, path string, encrypted bool, passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("database %s: %w", path, errs.ErrAlreadyExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", errs.ErrIO, path, err)
	}
	if err := m.open(ctx, path, encrypted, passphrase); err != nil {
		// Leave nothing behind so a retry is not refused as existing.
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			_ = os.Remove(p)
		}
		return err
	}
	return nil
}

// OpenExisting opens the database at path. A wrong passphrase fails the
// forced probe read with errs.ErrCrypto. The schema is migrated, which is
// a no-op for a current database.
func (m *Manager) OpenExisting(ctx context.Context, path string, encrypted bool, passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open(ctx, path, encrypted, passphrase)
}

func (m *Manager) open(ctx context.Context, path string, encrypted bool, passphrase string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create db directory %s: %w", errs.ErrIO, dir, err)
		}
	}

	db, err := openDB(ctx, path, keyConfig{encrypted: encrypted, passphrase: passphrase})
	if err != nil {
		m.log.Warn("open database failed", "path", path, "encrypted", encrypted, "error", err)
		return err
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migrate %s: %w", path, err)
	}

	_ = m.closeLocked()
	m.db = db
	m.path = path
	m.encrypted = encrypted
	m.log.Info("database unlocked", "path", path, "encrypted", encrypted)
	return nil
}

// Close drops the handle and returns to Configured&Locked. Closing the
// last connection checkpoints the WAL into the main file. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	m.log.Info("database locked", "path", m.path)
	if err != nil {
		return fmt.Errorf("%w: close database: %w", errs.ErrIO, err)
	}
	return nil
}

// Offline closes the handle, runs f while no connection is open, then
// points the manager at path and reopens it when unencrypted. The lock is
// held from the close to the reopen, so no other call can open the file
// while f works on it. When f fails the store stays closed.
func (m *Manager) Offline(ctx context.Context, path string, encrypted bool, f func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.closeLocked(); err != nil {
		m.log.Warn("close before offline work", "error", err)
	}
	if err := f(); err != nil {
		return err
	}

	m.path = path
	m.encrypted = encrypted
	if encrypted {
		m.log.Info("encrypted store left locked", "path", path)
		return nil
	}
	return m.open(ctx, path, false, "")
}

// WithConn runs f against the open handle, or fails with errs.ErrLocked.
func (m *Manager) WithConn(f func(q DBTX) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return errs.ErrLocked
	}
	return f(m.db)
}

// WithTx runs f inside one transaction, committing when f returns nil.
func (m *Manager) WithTx(ctx context.Context, f func(q DBTX) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return errs.ErrLocked
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// A panic in f must not leave the only pooled connection mid-transaction.
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.log.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
