package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is written to meta the first time a database is migrated.
const SchemaVersion = 1

// Schema is the durable table layout. Restored backups must match it.
const Schema = `
CREATE TABLE IF NOT EXISTS meta (
	schema_version INTEGER NOT NULL,
	created_at_utc INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	market TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty REAL NOT NULL,
	entry_time_utc INTEGER NOT NULL,
	exit_time_utc INTEGER NOT NULL,
	timezone TEXT NOT NULL,
	session TEXT NOT NULL,
	pnl_amount REAL NOT NULL,
	pnl_includes_fees INTEGER NOT NULL,
	fees REAL NOT NULL,
	pnl_net REAL NOT NULL,
	pnl_gross REAL NOT NULL,
	notes TEXT NOT NULL,
	created_at_utc INTEGER NOT NULL,
	updated_at_utc INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time_utc DESC);
CREATE INDEX IF NOT EXISTS idx_trades_symbol_exit_time ON trades(symbol, exit_time_utc DESC);
CREATE INDEX IF NOT EXISTS idx_trades_session_exit_time ON trades(session, exit_time_utc DESC);

CREATE TABLE IF NOT EXISTS rules (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	sort_order INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trade_rules (
	trade_id TEXT NOT NULL,
	rule_id TEXT NOT NULL,
	checked INTEGER NOT NULL,
	PRIMARY KEY (trade_id, rule_id),
	FOREIGN KEY (trade_id) REFERENCES trades(id) ON DELETE CASCADE,
	FOREIGN KEY (rule_id) REFERENCES rules(id) ON DELETE CASCADE
);
`

// journalSchema is applied after the default rules are seeded.
const journalSchema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id TEXT PRIMARY KEY,
	date_local TEXT NOT NULL,
	type TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at_utc INTEGER NOT NULL,
	updated_at_utc INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_entries_date ON journal_entries(date_local);

CREATE TABLE IF NOT EXISTS journal_trade_links (
	journal_entry_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	PRIMARY KEY (journal_entry_id, trade_id),
	FOREIGN KEY (journal_entry_id) REFERENCES journal_entries(id) ON DELETE CASCADE,
	FOREIGN KEY (trade_id) REFERENCES trades(id) ON DELETE CASCADE
);
`

// Migrate brings q up to the current schema. It is safe to run on every
// open: all DDL is IF NOT EXISTS, meta is written once and the default
// rules are only seeded into an empty rules table.
func Migrate(ctx context.Context, q DBTX) error {
	if _, err := q.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta`).Scan(&n); err != nil {
		return fmt.Errorf("count meta: %w", err)
	}
	if n == 0 {
		_, err := q.ExecContext(ctx,
			`INSERT INTO meta (schema_version, created_at_utc) VALUES (?, ?)`,
			SchemaVersion, time.Now().UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("insert meta: %w", err)
		}
	}

	if err := seedDefaultRules(ctx, q); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, journalSchema); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	return nil
}

// Version reads the schema version recorded in meta.
func Version(ctx context.Context, q DBTX) (int, error) {
	var v int
	err := q.QueryRowContext(ctx, `SELECT schema_version FROM meta LIMIT 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
