// Package journal is the trade ledger: trades with derived PnL, the rule
// checklist, calendar aggregation, daily notes and settings. It borrows the
// database from store.Manager for each call and keeps no state between calls.
package journal

// Trade is a persisted trade. PnLNet and PnLGross are derived from
// PnLAmount, Fees and PnLIncludesFees on every write.
type Trade struct {
	ID              string  `json:"id"`
	Market          string  `json:"market"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	Qty             float64 `json:"qty"`
	EntryTimeUTC    int64   `json:"entry_time_utc"`
	ExitTimeUTC     int64   `json:"exit_time_utc"`
	Timezone        string  `json:"timezone"`
	Session         string  `json:"session"`
	PnLAmount       float64 `json:"pnl_amount"`
	PnLIncludesFees bool    `json:"pnl_includes_fees"`
	Fees            float64 `json:"fees"`
	PnLNet          float64 `json:"pnl_net"`
	PnLGross        float64 `json:"pnl_gross"`
	Notes           string  `json:"notes"`
	CreatedAtUTC    int64   `json:"created_at_utc"`
	UpdatedAtUTC    int64   `json:"updated_at_utc"`
}

// TradeInput is what callers supply to create or update a trade.
// RulesChecked is optional; nil leaves the checklist at its defaults.
type TradeInput struct {
	Market          string          `json:"market"`
	Symbol          string          `json:"symbol"`
	Side            string          `json:"side"`
	Qty             float64         `json:"qty"`
	EntryTimeUTC    int64           `json:"entry_time_utc"`
	ExitTimeUTC     int64           `json:"exit_time_utc"`
	Timezone        string          `json:"timezone"`
	Session         string          `json:"session"`
	PnLAmount       float64         `json:"pnl_amount"`
	PnLIncludesFees bool            `json:"pnl_includes_fees"`
	Fees            float64         `json:"fees"`
	Notes           string          `json:"notes"`
	RulesChecked    map[string]bool `json:"rules_checked,omitempty"`
}

// Rule is one checklist item. SortOrder sets display order and need not be unique.
type Rule struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	SortOrder int64  `json:"sort_order"`
}

// TradeWithRules is a trade with the full checklist and its checked state.
type TradeWithRules struct {
	Trade   Trade           `json:"trade"`
	Rules   []Rule          `json:"rules"`
	Checked map[string]bool `json:"checked"`
}

// DaySummary aggregates the trades whose exit falls on one local date.
type DaySummary struct {
	DateLocal   string  `json:"date_local"`
	TradeCount  int64   `json:"trade_count"`
	PnLNetTotal float64 `json:"pnl_net_total"`
}

// TradeHighlight is the slice of a trade shown in the day view.
type TradeHighlight struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Qty         float64 `json:"qty"`
	PnLNet      float64 `json:"pnl_net"`
	Notes       string  `json:"notes"`
	ExitTimeUTC int64   `json:"exit_time_utc"`
}

// Entry is a journal note for a local date.
type Entry struct {
	DateLocal string `json:"date_local"`
	Text      string `json:"text"`
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
