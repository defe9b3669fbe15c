// Package app is the typed operation surface over the journal core. Each
// method takes a request struct and returns a result or a single error
// wrapping one of the errs sentinels.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/ftjournal/backup"
	"github.com/rustyeddy/ftjournal/backup/s3mirror"
	"github.com/rustyeddy/ftjournal/config"
	"github.com/rustyeddy/ftjournal/csvimport"
	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/store"
)

// MirrorFactory builds the S3 mirror from config.
type MirrorFactory func(ctx context.Context, cfg config.S3Config, log *slog.Logger) (*s3mirror.Mirror, error)

// Options configures New. Zero values pick the defaults.
type Options struct {
	// ConfigPath is the config file; default config.DefaultPath().
	ConfigPath string
	// DBPath is where Initialize creates the database; default is
	// config.DBFileName beside the config file.
	DBPath string
	// NewMirror overrides s3mirror.New.
	NewMirror MirrorFactory
	Log       *slog.Logger
	Now       func() time.Time
}

// App wires the store, the journal stores, backups and CSV import around
// one store.Manager.
type App struct {
	configPath string
	dbPath     string
	newMirror  MirrorFactory
	now        func() time.Time
	log        *slog.Logger

	db       *store.Manager
	trades   *journal.TradeStore
	calendar *journal.Aggregator
	entries  *journal.EntryStore
	settings *journal.SettingsStore
	backups  *backup.Coordinator
	importer *csvimport.Importer
}

// New returns an App with the database closed.
func New(opts Options) (*App, error) {
	if opts.ConfigPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
		}
		opts.ConfigPath = p
	}
	if opts.DBPath == "" {
		opts.DBPath = filepath.Join(filepath.Dir(opts.ConfigPath), config.DBFileName)
	}
	if opts.NewMirror == nil {
		opts.NewMirror = s3mirror.New
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	a := &App{
		configPath: opts.ConfigPath,
		dbPath:     opts.DBPath,
		newMirror:  opts.NewMirror,
		now:        opts.Now,
		log:        opts.Log,
	}
	a.db = store.NewManager(opts.Log)
	a.trades = journal.NewTradeStore(a.db, opts.Log)
	a.calendar = journal.NewAggregator(a.db, opts.Log)
	a.entries = journal.NewEntryStore(a.db)
	a.settings = journal.NewSettingsStore(a.db)
	a.backups = backup.NewCoordinator(a.db, a.loadConfig, opts.Log)
	a.importer = csvimport.NewImporter(a.trades, opts.Log)
	return a, nil
}

// ConfigPath returns the config file in use.
func (a *App) ConfigPath() string { return a.configPath }

// Close locks the database.
func (a *App) Close() error { return a.db.Close() }

func (a *App) loadConfig() (*config.Config, error) {
	return config.LoadFromFile(a.configPath)
}

// Status reports the connection state.
func (a *App) Status() StatusResult {
	path, _ := a.db.Path()
	return StatusResult{
		DB:         a.db.Status(),
		ConfigPath: a.configPath,
		DBPath:     path,
		Cipher:     store.CipherSupported(),
	}
}

// Initialize creates the database and writes the config that points at
// it. An existing database file is never overwritten.
func (a *App) Initialize(ctx context.Context, req InitRequest) (StatusResult, error) {
	cfg := config.Default()
	if existing, err := a.loadConfig(); err == nil {
		cfg = existing
	}
	cfg.DBPath = a.dbPath
	cfg.Encrypted = req.Encrypted
	cfg.SchemaVersion = store.SchemaVersion

	a.db.Configure(cfg.DBPath, cfg.Encrypted)
	if err := a.db.CreateNew(ctx, cfg.DBPath, req.Encrypted, req.Passphrase); err != nil {
		return a.Status(), err
	}
	if err := cfg.SaveToFile(a.configPath); err != nil {
		return a.Status(), err
	}

	a.log.Info("journal initialized", "db_path", cfg.DBPath, "encrypted", cfg.Encrypted, "config", a.configPath)
	return a.Status(), nil
}

// Unlock opens the configured database with the passphrase.
func (a *App) Unlock(ctx context.Context, req UnlockRequest) (StatusResult, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return a.Status(), err
	}
	a.db.Configure(cfg.DBPath, cfg.Encrypted)
	if err := a.db.OpenExisting(ctx, cfg.DBPath, cfg.Encrypted, req.Passphrase); err != nil {
		return a.Status(), err
	}
	return a.Status(), nil
}

// Autoload configures the manager from the config file and opens an
// unencrypted database. A missing config is not an error.
func (a *App) Autoload(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if errors.Is(err, errs.ErrConfiguration) && !config.Exists(a.configPath) {
		return nil
	}
	if err != nil {
		return err
	}
	a.db.Configure(cfg.DBPath, cfg.Encrypted)
	if cfg.Encrypted {
		return nil
	}
	return a.db.OpenExisting(ctx, cfg.DBPath, false, "")
}

// Settings returns the stored settings.
func (a *App) Settings(ctx context.Context) (journal.Settings, error) {
	return a.settings.Get(ctx)
}

// UpdateSettings validates and stores new settings.
func (a *App) UpdateSettings(ctx context.Context, req SettingsUpdateRequest) (journal.Settings, error) {
	return a.settings.SetTimezone(ctx, strings.TrimSpace(req.Timezone))
}

// Rules lists the checklist.
func (a *App) Rules(ctx context.Context) ([]journal.Rule, error) {
	return a.trades.ListRules(ctx)
}

// UpsertRule creates or edits a rule.
func (a *App) UpsertRule(ctx context.Context, req RuleUpsertRequest) error {
	return a.trades.UpsertRule(ctx, journal.Rule{ID: req.ID, Label: req.Label, SortOrder: req.SortOrder})
}

// DeleteRule removes a rule and its links.
func (a *App) DeleteRule(ctx context.Context, id string) error {
	return a.trades.DeleteRule(ctx, id)
}

// ListTrades pages through trades, most recent exit first.
func (a *App) ListTrades(ctx context.Context, req TradesListRequest) ([]journal.Trade, error) {
	if req.Limit < 0 || req.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must be >= 0", errs.ErrValidation)
	}
	if req.Limit == 0 {
		req.Limit = DefaultListLimit
	}
	return a.trades.List(ctx, req.Limit, req.Offset)
}

// GetTrade returns a trade with its checklist.
func (a *App) GetTrade(ctx context.Context, id string) (journal.TradeWithRules, error) {
	return a.trades.GetWithRules(ctx, id)
}

// CreateTrade stores a new trade.
func (a *App) CreateTrade(ctx context.Context, in journal.TradeInput) (journal.Trade, error) {
	return a.trades.Create(ctx, in)
}

// UpdateTrade rewrites a trade.
func (a *App) UpdateTrade(ctx context.Context, req TradeUpdateRequest) (journal.Trade, error) {
	return a.trades.Update(ctx, req.ID, req.Input)
}

// DeleteTrade removes a trade.
func (a *App) DeleteTrade(ctx context.Context, id string) error {
	return a.trades.Delete(ctx, id)
}

// MonthSummary buckets a month's trades by local date in the settings timezone.
func (a *App) MonthSummary(ctx context.Context, req MonthSummaryRequest) ([]journal.DaySummary, error) {
	s, err := a.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return a.calendar.MonthSummary(ctx, s.Timezone, req.Year, time.Month(req.Month))
}

// DayTrades lists the trades that exited on a local date in the settings timezone.
func (a *App) DayTrades(ctx context.Context, req DayRequest) ([]journal.TradeHighlight, error) {
	s, err := a.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return a.calendar.DayTrades(ctx, s.Timezone, req.Date)
}

// Day gathers the note and trades for a local date.
func (a *App) Day(ctx context.Context, req DayRequest) (journal.DayView, error) {
	s, err := a.settings.Get(ctx)
	if err != nil {
		return journal.DayView{}, err
	}
	trades, err := a.calendar.DayTrades(ctx, s.Timezone, req.Date)
	if err != nil {
		return journal.DayView{}, err
	}
	entry, err := a.entries.GetDaily(ctx, req.Date)
	if err != nil {
		return journal.DayView{}, err
	}
	return journal.DayView{Date: req.Date, Zone: s.Timezone, Entry: entry, Trades: trades}, nil
}

// DailyEntry returns the note for a local date.
func (a *App) DailyEntry(ctx context.Context, req DayRequest) (journal.Entry, error) {
	return a.entries.GetDaily(ctx, req.Date)
}

// SaveDailyEntry writes the note for a local date.
func (a *App) SaveDailyEntry(ctx context.Context, req DailyEntrySaveRequest) (journal.Entry, error) {
	if err := a.entries.UpsertDaily(ctx, req.Date, req.Text); err != nil {
		return journal.Entry{}, err
	}
	return journal.Entry{DateLocal: req.Date, Text: req.Text}, nil
}

// LinkTrade attaches a trade to a date's note.
func (a *App) LinkTrade(ctx context.Context, req LinkRequest) error {
	return a.entries.LinkTrade(ctx, req.Date, req.TradeID)
}

// UnlinkTrade detaches a trade from a date's note.
func (a *App) UnlinkTrade(ctx context.Context, req LinkRequest) error {
	return a.entries.UnlinkTrade(ctx, req.Date, req.TradeID)
}

// LinkedTrades lists the trades attached to a date's note.
func (a *App) LinkedTrades(ctx context.Context, req DayRequest) ([]string, error) {
	return a.entries.LinkedTrades(ctx, req.Date)
}

// ImportCSV loads trades from a CSV file.
func (a *App) ImportCSV(ctx context.Context, req CSVImportRequest) (csvimport.Result, error) {
	zone := strings.TrimSpace(req.Timezone)
	if zone == "" {
		s, err := a.settings.Get(ctx)
		if err != nil {
			return csvimport.Result{}, err
		}
		zone = s.Timezone
	}
	return a.importer.ImportFile(ctx, req.Path, zone)
}

// ExportCSV writes every trade to w in the importer's column layout.
func (a *App) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	s, err := a.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	return csvimport.Export(ctx, w, a.trades, s.Timezone)
}
