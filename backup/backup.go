// Package backup copies the live database file in and out. The connection
// is always closed before the copy and reopened after it only when the
// store is unencrypted; an encrypted store stays locked until the user
// unlocks it again.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/ftjournal/config"
	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/store"
)

// ConfigLoader returns the live config. It should fail with
// errs.ErrConfiguration when the app was never initialized.
type ConfigLoader func() (*config.Config, error)

// Coordinator runs the close, copy, reopen sequence against one Manager,
// under a single hold of its lock.
type Coordinator struct {
	db   *store.Manager
	load ConfigLoader
	log  *slog.Logger
}

// NewCoordinator returns a Coordinator for db.
func NewCoordinator(db *store.Manager, load ConfigLoader, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{db: db, load: load, log: log.With("component", "backup")}
}

// FileName returns a timestamped backup file name for t.
func FileName(t time.Time) string {
	return "ftjournal-" + t.UTC().Format("20060102-150405") + ".db"
}

// Export copies the live database to dest. A failed copy leaves dest
// partially written and the store closed.
func (c *Coordinator) Export(ctx context.Context, dest string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	src := cfg.DBPath
	if samePath(src, dest) {
		return fmt.Errorf("%w: backup destination is the live database", errs.ErrValidation)
	}

	return c.db.Offline(ctx, cfg.DBPath, cfg.Encrypted, func() error {
		if err := copyFile(src, dest); err != nil {
			return err
		}
		c.log.Info("database exported", "src", src, "dest", dest)
		return nil
	})
}

// Import overwrites the live database with src. The current data is
// replaced; WAL and shared-memory files left from the old database are
// removed so they are not replayed onto the new one.
func (c *Coordinator) Import(ctx context.Context, src string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	dest := cfg.DBPath
	if samePath(src, dest) {
		return fmt.Errorf("%w: backup source is the live database", errs.ErrValidation)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: backup source: %v", errs.ErrIO, err)
	}

	return c.db.Offline(ctx, dest, cfg.Encrypted, func() error {
		for _, suffix := range []string{"-wal", "-shm"} {
			if err := os.Remove(dest + suffix); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("%w: remove %s: %v", errs.ErrIO, dest+suffix, err)
			}
		}
		if err := copyFile(src, dest); err != nil {
			return err
		}
		c.log.Info("database imported", "src", src, "dest", dest)
		return nil
	})
}

// copyFile writes src over dest, creating dest's parent directories.
func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: create dir %s: %v", errs.ErrIO, filepath.Dir(dest), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", errs.ErrIO, src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errs.ErrIO, dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: copy %s to %s: %v", errs.ErrIO, src, dest, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: sync %s: %v", errs.ErrIO, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", errs.ErrIO, dest, err)
	}
	return nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
