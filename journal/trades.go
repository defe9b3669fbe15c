package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/pkg/id"
	"github.com/rustyeddy/ftjournal/store"
)

const tradeColumns = `id, market, symbol, side, qty, entry_time_utc, exit_time_utc, timezone, session,
	pnl_amount, pnl_includes_fees, fees, pnl_net, pnl_gross, notes, created_at_utc, updated_at_utc`

// TradeStore is CRUD over trades and their checklist links.
type TradeStore struct {
	db  *store.Manager
	log *slog.Logger
	now func() time.Time
}

// NewTradeStore returns a TradeStore borrowing connections from db.
func NewTradeStore(db *store.Manager, log *slog.Logger) *TradeStore {
	if log == nil {
		log = slog.Default()
	}
	return &TradeStore{db: db, log: log.With("component", "trades"), now: time.Now}
}

// Create validates in, derives PnL and inserts the trade together with one
// checklist link per existing rule, all in one transaction. Links default
// to unchecked unless in.RulesChecked names the rule.
func (s *TradeStore) Create(ctx context.Context, in TradeInput) (Trade, error) {
	if err := in.Validate(); err != nil {
		return Trade{}, err
	}

	now := s.now().UTC()
	t := tradeFromInput(id.NewAt(now), in)
	t.CreatedAtUTC = now.UnixMilli()
	t.UpdatedAtUTC = t.CreatedAtUTC

	err := s.db.WithTx(ctx, func(q store.DBTX) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO trades (`+tradeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Market, t.Symbol, t.Side, t.Qty, t.EntryTimeUTC, t.ExitTimeUTC, t.Timezone, t.Session,
			t.PnLAmount, t.PnLIncludesFees, t.Fees, t.PnLNet, t.PnLGross, t.Notes, t.CreatedAtUTC, t.UpdatedAtUTC,
		)
		if err != nil {
			return fmt.Errorf("insert trade %s: %w", t.Symbol, err)
		}

		ruleIDs, err := listRuleIDs(ctx, q)
		if err != nil {
			return err
		}
		for _, ruleID := range ruleIDs {
			checked := in.RulesChecked[ruleID]
			_, err := q.ExecContext(ctx,
				`INSERT INTO trade_rules (trade_id, rule_id, checked) VALUES (?, ?, ?)`,
				t.ID, ruleID, checked)
			if err != nil {
				return fmt.Errorf("seed checklist rule %s: %w", ruleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Trade{}, err
	}

	s.log.Debug("trade created", "id", t.ID, "symbol", t.Symbol, "pnl_net", t.PnLNet)
	return t, nil
}

// Update rewrites the trade row and recomputes PnL. Checklist entries named
// in in.RulesChecked are upserted; links for unnamed rules are untouched.
// Naming a rule that does not exist fails with errs.ErrNotFound and
// changes nothing.
func (s *TradeStore) Update(ctx context.Context, tradeID string, in TradeInput) (Trade, error) {
	if err := in.Validate(); err != nil {
		return Trade{}, err
	}

	var out Trade
	err := s.db.WithTx(ctx, func(q store.DBTX) error {
		t := tradeFromInput(tradeID, in)
		res, err := q.ExecContext(ctx, `
			UPDATE trades SET
				market = ?, symbol = ?, side = ?, qty = ?, entry_time_utc = ?, exit_time_utc = ?,
				timezone = ?, session = ?, pnl_amount = ?, pnl_includes_fees = ?, fees = ?,
				pnl_net = ?, pnl_gross = ?, notes = ?, updated_at_utc = ?
			WHERE id = ?`,
			t.Market, t.Symbol, t.Side, t.Qty, t.EntryTimeUTC, t.ExitTimeUTC,
			t.Timezone, t.Session, t.PnLAmount, t.PnLIncludesFees, t.Fees,
			t.PnLNet, t.PnLGross, t.Notes, s.now().UTC().UnixMilli(),
			tradeID,
		)
		if err != nil {
			return fmt.Errorf("update trade %s: %w", tradeID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update trade %s: %w", tradeID, err)
		}
		if n == 0 {
			return fmt.Errorf("trade %s: %w", tradeID, errs.ErrNotFound)
		}

		if len(in.RulesChecked) > 0 {
			known, err := listRuleIDs(ctx, q)
			if err != nil {
				return err
			}
			for ruleID := range in.RulesChecked {
				if !slices.Contains(known, ruleID) {
					return fmt.Errorf("rule %s: %w", ruleID, errs.ErrNotFound)
				}
			}
		}
		for ruleID, checked := range in.RulesChecked {
			_, err := q.ExecContext(ctx, `
				INSERT INTO trade_rules (trade_id, rule_id, checked) VALUES (?, ?, ?)
				ON CONFLICT(trade_id, rule_id) DO UPDATE SET checked = excluded.checked`,
				tradeID, ruleID, checked)
			if err != nil {
				return fmt.Errorf("upsert checklist rule %s: %w", ruleID, err)
			}
		}

		out, err = getTrade(ctx, q, tradeID)
		return err
	})
	if err != nil {
		return Trade{}, err
	}

	s.log.Debug("trade updated", "id", tradeID)
	return out, nil
}

// Delete removes the trade; its checklist and journal links cascade.
func (s *TradeStore) Delete(ctx context.Context, tradeID string) error {
	return s.db.WithConn(func(q store.DBTX) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, tradeID); err != nil {
			return fmt.Errorf("delete trade %s: %w", tradeID, err)
		}
		s.log.Debug("trade deleted", "id", tradeID)
		return nil
	})
}

// List returns a page of trades, most recent exit first.
func (s *TradeStore) List(ctx context.Context, limit, offset int) ([]Trade, error) {
	var out []Trade
	err := s.db.WithConn(func(q store.DBTX) error {
		rows, err := q.QueryContext(ctx, `
			SELECT `+tradeColumns+`
			FROM trades
			ORDER BY exit_time_utc DESC
			LIMIT ? OFFSET ?`, limit, offset)
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}
		defer rows.Close()

		out = make([]Trade, 0)
		for rows.Next() {
			t, err := scanTrade(rows)
			if err != nil {
				return fmt.Errorf("scan trade: %w", err)
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

// GetWithRules returns the trade, every rule by sort order, and the
// checked state per rule id.
func (s *TradeStore) GetWithRules(ctx context.Context, tradeID string) (TradeWithRules, error) {
	var out TradeWithRules
	err := s.db.WithConn(func(q store.DBTX) error {
		t, err := getTrade(ctx, q, tradeID)
		if err != nil {
			return err
		}
		rules, err := listRules(ctx, q)
		if err != nil {
			return err
		}
		checked, err := checkedMap(ctx, q, tradeID)
		if err != nil {
			return err
		}
		out = TradeWithRules{Trade: t, Rules: rules, Checked: checked}
		return nil
	})
	return out, err
}

func tradeFromInput(tradeID string, in TradeInput) Trade {
	net, gross := DerivePnL(in.PnLAmount, in.Fees, in.PnLIncludesFees)
	return Trade{
		ID:              tradeID,
		Market:          in.Market,
		Symbol:          in.Symbol,
		Side:            in.Side,
		Qty:             in.Qty,
		EntryTimeUTC:    in.EntryTimeUTC,
		ExitTimeUTC:     in.ExitTimeUTC,
		Timezone:        in.Timezone,
		Session:         in.Session,
		PnLAmount:       in.PnLAmount,
		PnLIncludesFees: in.PnLIncludesFees,
		Fees:            in.Fees,
		PnLNet:          net,
		PnLGross:        gross,
		Notes:           in.Notes,
	}
}

func getTrade(ctx context.Context, q store.DBTX, tradeID string) (Trade, error) {
	row := q.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, tradeID)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Trade{}, fmt.Errorf("trade %s: %w", tradeID, errs.ErrNotFound)
	}
	if err != nil {
		return Trade{}, fmt.Errorf("get trade %s: %w", tradeID, err)
	}
	return t, nil
}

func checkedMap(ctx context.Context, q store.DBTX, tradeID string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT rule_id, checked FROM trade_rules WHERE trade_id = ?`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("list checklist for %s: %w", tradeID, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var ruleID string
		var checked bool
		if err := rows.Scan(&ruleID, &checked); err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}
		out[ruleID] = checked
	}
	return out, rows.Err()
}

func scanTrade(s scanner) (Trade, error) {
	var t Trade
	err := s.Scan(
		&t.ID, &t.Market, &t.Symbol, &t.Side, &t.Qty, &t.EntryTimeUTC, &t.ExitTimeUTC, &t.Timezone, &t.Session,
		&t.PnLAmount, &t.PnLIncludesFees, &t.Fees, &t.PnLNet, &t.PnLGross, &t.Notes, &t.CreatedAtUTC, &t.UpdatedAtUTC,
	)
	return t, err
}
