package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/store"
)

// ListRules returns the checklist ordered by sort order.
func (s *TradeStore) ListRules(ctx context.Context) ([]Rule, error) {
	var out []Rule
	err := s.db.WithConn(func(q store.DBTX) error {
		var err error
		out, err = listRules(ctx, q)
		return err
	})
	return out, err
}

// UpsertRule inserts r or updates the label and sort order of an existing
// rule. Trades created before a new rule existed get no link for it; the
// checked map treats a missing link as unchecked.
func (s *TradeStore) UpsertRule(ctx context.Context, r Rule) error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return fmt.Errorf("%w: rule id is required", errs.ErrValidation)
	}
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("%w: rule label is required", errs.ErrValidation)
	}

	return s.db.WithConn(func(q store.DBTX) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO rules (id, label, sort_order) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET label = excluded.label, sort_order = excluded.sort_order`,
			r.ID, r.Label, r.SortOrder)
		if err != nil {
			return fmt.Errorf("upsert rule %s: %w", r.ID, err)
		}
		return nil
	})
}

// DeleteRule removes a rule and, by cascade, every trade's link to it.
func (s *TradeStore) DeleteRule(ctx context.Context, ruleID string) error {
	return s.db.WithConn(func(q store.DBTX) error {
		res, err := q.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, ruleID)
		if err != nil {
			return fmt.Errorf("delete rule %s: %w", ruleID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete rule %s: %w", ruleID, err)
		}
		if n == 0 {
			return fmt.Errorf("rule %s: %w", ruleID, errs.ErrNotFound)
		}
		return nil
	})
}

func listRules(ctx context.Context, q store.DBTX) ([]Rule, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, label, sort_order FROM rules ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	out := make([]Rule, 0)
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.Label, &r.SortOrder); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func listRuleIDs(ctx context.Context, q store.DBTX) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM rules`)
	if err != nil {
		return nil, fmt.Errorf("list rule ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ruleID string
		if err := rows.Scan(&ruleID); err != nil {
			return nil, fmt.Errorf("scan rule id: %w", err)
		}
		out = append(out, ruleID)
	}
	return out, rows.Err()
}
