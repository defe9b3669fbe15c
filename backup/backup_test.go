package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ftjournal/config"
	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/store"
)

type fixture struct {
	db     *store.Manager
	trades *journal.TradeStore
	cfg    *config.Config
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	live := filepath.Join(dir, "live", "journal.db")
	db := store.NewManager(nil)
	require.NoError(t, db.CreateNew(context.Background(), live, false, ""))
	t.Cleanup(func() { _ = db.Close() })

	return &fixture{
		db:     db,
		trades: journal.NewTradeStore(db, nil),
		cfg:    &config.Config{DBPath: live, SchemaVersion: 1},
		dir:    dir,
	}
}

func (f *fixture) loader() (*config.Config, error) {
	c := *f.cfg
	return &c, nil
}

func (f *fixture) addTrade(t *testing.T, symbol string, exit time.Time, amount float64) {
	t.Helper()

	_, err := f.trades.Create(context.Background(), journal.TradeInput{
		Market: "futures", Symbol: symbol, Side: "long", Qty: 1,
		EntryTimeUTC: exit.Add(-time.Minute).UnixMilli(), ExitTimeUTC: exit.UnixMilli(),
		Timezone: "UTC", Session: "ny", PnLAmount: amount, PnLIncludesFees: true,
	})
	require.NoError(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	base := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	f.addTrade(t, "ES", base, 10)
	f.addTrade(t, "NQ", base.Add(time.Hour), -5)
	f.addTrade(t, "CL", base.Add(2*time.Hour), 2.5)

	before, err := f.trades.List(ctx, 100, 0)
	require.NoError(t, err)

	c := NewCoordinator(f.db, f.loader, nil)
	dest := filepath.Join(f.dir, "backups", "nested", FileName(base))
	require.NoError(t, c.Export(ctx, dest))

	_, err = os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, store.Status{Configured: true, Unlocked: true}, f.db.Status(), "unencrypted store reopens")

	f.addTrade(t, "GC", base.Add(3*time.Hour), 99)
	changed, err := f.trades.List(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, changed, 4)

	require.NoError(t, c.Import(ctx, dest))
	assert.True(t, f.db.Status().Unlocked)

	after, err := f.trades.List(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEncryptedStoreStaysLocked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.cfg.Encrypted = true

	c := NewCoordinator(f.db, f.loader, nil)
	require.NoError(t, c.Export(ctx, filepath.Join(f.dir, "out.db")))
	assert.Equal(t, store.Status{Configured: true, Encrypted: true, Unlocked: false}, f.db.Status())

	_, err := f.trades.List(ctx, 10, 0)
	assert.ErrorIs(t, err, errs.ErrLocked)
}

func TestBackupErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	notInit := NewCoordinator(f.db, func() (*config.Config, error) {
		return nil, errs.ErrConfiguration
	}, nil)
	assert.ErrorIs(t, notInit.Export(ctx, filepath.Join(f.dir, "x.db")), errs.ErrConfiguration)
	assert.ErrorIs(t, notInit.Import(ctx, filepath.Join(f.dir, "x.db")), errs.ErrConfiguration)

	c := NewCoordinator(f.db, f.loader, nil)
	assert.ErrorIs(t, c.Import(ctx, filepath.Join(f.dir, "missing.db")), errs.ErrIO)
	assert.True(t, f.db.Status().Unlocked, "a missing source does not close the store")

	assert.ErrorIs(t, c.Export(ctx, f.cfg.DBPath), errs.ErrValidation)
	assert.ErrorIs(t, c.Import(ctx, f.cfg.DBPath), errs.ErrValidation)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 6, 3, 9, 5, 7, 0, time.FixedZone("EDT", -4*3600))
	assert.Equal(t, "ftjournal-20240603-130507.db", FileName(ts))
}

func TestEncryptedExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	if !store.CipherSupported() {
		t.Skip("plainsqlite build without libsqlcipher")
	}

	ctx := context.Background()
	dir := t.TempDir()
	live := filepath.Join(dir, "live", "secret.db")
	const pass = "correct horse"

	db := store.NewManager(nil)
	require.NoError(t, db.CreateNew(ctx, live, true, pass))
	t.Cleanup(func() { _ = db.Close() })
	f := &fixture{
		db:     db,
		trades: journal.NewTradeStore(db, nil),
		cfg:    &config.Config{DBPath: live, Encrypted: true, SchemaVersion: 1},
		dir:    dir,
	}
	base := time.Date(2024, 11, 3, 5, 30, 0, 0, time.UTC)
	f.addTrade(t, "ES", base, 12)
	before, err := f.trades.List(ctx, 100, 0)
	require.NoError(t, err)

	c := NewCoordinator(db, f.loader, nil)
	dest := filepath.Join(dir, "backups", FileName(base))
	require.NoError(t, c.Export(ctx, dest))
	assert.Equal(t, store.Status{Configured: true, Encrypted: true}, db.Status())

	require.NoError(t, db.OpenExisting(ctx, live, true, pass))
	f.addTrade(t, "NQ", base.Add(time.Hour), 3)

	require.NoError(t, c.Import(ctx, dest))
	assert.False(t, db.Status().Unlocked)

	assert.ErrorIs(t, db.OpenExisting(ctx, live, true, "wrong"), errs.ErrCrypto)
	require.NoError(t, db.OpenExisting(ctx, live, true, pass))
	after, err := f.trades.List(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
