package store

import (
	"context"
	"fmt"
)

// DefaultRule is one entry of the checklist seeded into a new database.
type DefaultRule struct {
	ID    string
	Label string
}

// DefaultRules is seeded in this order; the index becomes sort_order.
var DefaultRules = []DefaultRule{
	{"followed_plan", "Followed the trade plan"},
	{"waited_confirmation", "Waited for confirmation"},
	{"traded_in_session", "Traded in my intended session"},
	{"respected_risk", "Respected my risk limits"},
	{"no_revenge", "Avoided revenge trading"},
	{"no_fomo", "Avoided FOMO entries"},
	{"logged_immediately", "Logged the trade immediately"},
}

// seedDefaultRules fills an empty rules table. A table with any rows is
// left alone, so user edits survive every reopen.
func seedDefaultRules(ctx context.Context, q DBTX) error {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules`).Scan(&n); err != nil {
		return fmt.Errorf("count rules: %w", err)
	}
	if n > 0 {
		return nil
	}

	for i, r := range DefaultRules {
		_, err := q.ExecContext(ctx,
			`INSERT INTO rules (id, label, sort_order) VALUES (?, ?, ?)`,
			r.ID, r.Label, i)
		if err != nil {
			return fmt.Errorf("seed rule %s: %w", r.ID, err)
		}
	}
	return nil
}
