package app

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/rustyeddy/ftjournal/backup"
	"github.com/rustyeddy/ftjournal/backup/s3mirror"
	"github.com/rustyeddy/ftjournal/errs"
)

// BackupDir is where backups land when no path is given.
func (a *App) BackupDir() string {
	return filepath.Join(filepath.Dir(a.configPath), "backups")
}

// ExportBackup copies the database out and optionally mirrors it.
// An encrypted store is left locked afterwards.
func (a *App) ExportBackup(ctx context.Context, req BackupExportRequest) (BackupExportResult, error) {
	dest := req.Path
	if dest == "" {
		dest = filepath.Join(a.BackupDir(), backup.FileName(a.now()))
	}
	if err := a.backups.Export(ctx, dest); err != nil {
		return BackupExportResult{}, err
	}

	res := BackupExportResult{Path: dest}
	if !req.Remote {
		return res, nil
	}
	m, err := a.mirror(ctx)
	if err != nil {
		return res, err
	}
	res.Key, err = m.Push(ctx, dest)
	return res, err
}

// ImportBackup replaces the live database with a local file or a
// mirrored object.
func (a *App) ImportBackup(ctx context.Context, req BackupImportRequest) error {
	if req.Path == "" && req.Key == "" {
		return fmt.Errorf("%w: backup path or key is required", errs.ErrValidation)
	}
	src := req.Path
	if req.Key != "" {
		m, err := a.mirror(ctx)
		if err != nil {
			return err
		}
		src = filepath.Join(a.BackupDir(), "pulled", path.Base(req.Key))
		if err := m.Pull(ctx, req.Key, src); err != nil {
			return err
		}
	}
	return a.backups.Import(ctx, src)
}

// RemoteBackups lists mirrored backups, newest first.
func (a *App) RemoteBackups(ctx context.Context) ([]s3mirror.Object, error) {
	m, err := a.mirror(ctx)
	if err != nil {
		return nil, err
	}
	return m.List(ctx)
}

func (a *App) mirror(ctx context.Context) (*s3mirror.Mirror, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return a.newMirror(ctx, cfg.Backup.S3, a.log)
}
