package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/pkg/id"
	"github.com/rustyeddy/ftjournal/store"
	"github.com/rustyeddy/ftjournal/tz"
)

// EntryTypeDaily tags the one free-text note kept per local date.
const EntryTypeDaily = "daily"

// EntryStore keeps journal notes keyed by local date.
type EntryStore struct {
	db  *store.Manager
	now func() time.Time
}

// NewEntryStore returns an EntryStore borrowing connections from db.
func NewEntryStore(db *store.Manager) *EntryStore {
	return &EntryStore{db: db, now: time.Now}
}

// GetDaily returns the daily note for date, or an empty one.
func (s *EntryStore) GetDaily(ctx context.Context, date string) (Entry, error) {
	if err := checkDate(date); err != nil {
		return Entry{}, err
	}

	out := Entry{DateLocal: date}
	err := s.db.WithConn(func(q store.DBTX) error {
		err := q.QueryRowContext(ctx,
			`SELECT text FROM journal_entries WHERE date_local = ? AND type = ?`,
			date, EntryTypeDaily).Scan(&out.Text)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get daily entry %s: %w", date, err)
		}
		return nil
	})
	return out, err
}

// UpsertDaily writes the daily note for date.
func (s *EntryStore) UpsertDaily(ctx context.Context, date, text string) error {
	if err := checkDate(date); err != nil {
		return err
	}

	now := s.now().UTC().UnixMilli()
	return s.db.WithConn(func(q store.DBTX) error {
		entryID, err := dailyEntryID(ctx, q, date)
		if err != nil {
			return err
		}
		if entryID != "" {
			_, err := q.ExecContext(ctx,
				`UPDATE journal_entries SET text = ?, updated_at_utc = ? WHERE id = ?`,
				text, now, entryID)
			if err != nil {
				return fmt.Errorf("update daily entry %s: %w", date, err)
			}
			return nil
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO journal_entries (id, date_local, type, text, created_at_utc, updated_at_utc)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id.New(), date, EntryTypeDaily, text, now, now)
		if err != nil {
			return fmt.Errorf("insert daily entry %s: %w", date, err)
		}
		return nil
	})
}

// LinkTrade attaches a trade to the daily note for date, creating an
// empty note if none exists yet.
func (s *EntryStore) LinkTrade(ctx context.Context, date, tradeID string) error {
	if err := checkDate(date); err != nil {
		return err
	}

	now := s.now().UTC().UnixMilli()
	return s.db.WithConn(func(q store.DBTX) error {
		var n int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE id = ?`, tradeID).Scan(&n); err != nil {
			return fmt.Errorf("check trade %s: %w", tradeID, err)
		}
		if n == 0 {
			return fmt.Errorf("trade %s: %w", tradeID, errs.ErrNotFound)
		}

		entryID, err := dailyEntryID(ctx, q, date)
		if err != nil {
			return err
		}
		if entryID == "" {
			entryID = id.New()
			_, err := q.ExecContext(ctx, `
				INSERT INTO journal_entries (id, date_local, type, text, created_at_utc, updated_at_utc)
				VALUES (?, ?, ?, '', ?, ?)`,
				entryID, date, EntryTypeDaily, now, now)
			if err != nil {
				return fmt.Errorf("insert daily entry %s: %w", date, err)
			}
		}

		_, err = q.ExecContext(ctx,
			`INSERT OR IGNORE INTO journal_trade_links (journal_entry_id, trade_id) VALUES (?, ?)`,
			entryID, tradeID)
		if err != nil {
			return fmt.Errorf("link trade %s to %s: %w", tradeID, date, err)
		}
		return nil
	})
}

// UnlinkTrade detaches a trade from the daily note for date.
func (s *EntryStore) UnlinkTrade(ctx context.Context, date, tradeID string) error {
	return s.db.WithConn(func(q store.DBTX) error {
		_, err := q.ExecContext(ctx, `
			DELETE FROM journal_trade_links
			WHERE trade_id = ? AND journal_entry_id IN (
				SELECT id FROM journal_entries WHERE date_local = ? AND type = ?)`,
			tradeID, date, EntryTypeDaily)
		if err != nil {
			return fmt.Errorf("unlink trade %s from %s: %w", tradeID, date, err)
		}
		return nil
	})
}

// LinkedTrades returns the ids of trades linked to the daily note for date,
// ordered by exit time.
func (s *EntryStore) LinkedTrades(ctx context.Context, date string) ([]string, error) {
	var out []string
	err := s.db.WithConn(func(q store.DBTX) error {
		rows, err := q.QueryContext(ctx, `
			SELECT t.id
			FROM journal_trade_links l
			JOIN journal_entries e ON e.id = l.journal_entry_id
			JOIN trades t ON t.id = l.trade_id
			WHERE e.date_local = ? AND e.type = ?
			ORDER BY t.exit_time_utc ASC`, date, EntryTypeDaily)
		if err != nil {
			return fmt.Errorf("linked trades %s: %w", date, err)
		}
		defer rows.Close()

		out = make([]string, 0)
		for rows.Next() {
			var tradeID string
			if err := rows.Scan(&tradeID); err != nil {
				return fmt.Errorf("scan linked trade: %w", err)
			}
			out = append(out, tradeID)
		}
		return rows.Err()
	})
	return out, err
}

func dailyEntryID(ctx context.Context, q store.DBTX, date string) (string, error) {
	var entryID string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM journal_entries WHERE date_local = ? AND type = ?`,
		date, EntryTypeDaily).Scan(&entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find daily entry %s: %w", date, err)
	}
	return entryID, nil
}

func checkDate(date string) error {
	if _, err := time.Parse(tz.DateLayout, date); err != nil {
		return fmt.Errorf("%w: invalid date %q", errs.ErrValidation, date)
	}
	return nil
}
