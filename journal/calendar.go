package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ftjournal/store"
	"github.com/rustyeddy/ftjournal/tz"
)

// Aggregator answers calendar questions over the trades table. Exit
// instants are stored in UTC and bucketed by their local date in the
// caller's zone.
type Aggregator struct {
	db  *store.Manager
	log *slog.Logger
}

// NewAggregator returns an Aggregator borrowing connections from db.
func NewAggregator(db *store.Manager, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{db: db, log: log.With("component", "calendar")}
}

// MonthSummary groups the month's trades by local exit date. The month
// runs from local midnight on the 1st to local midnight on the 1st of the
// next month; a boundary in a DST gap or overlap is an error.
func (a *Aggregator) MonthSummary(ctx context.Context, zone string, year int, month time.Month) ([]DaySummary, error) {
	loc, err := tz.Load(zone)
	if err != nil {
		return nil, err
	}
	start, end, err := tz.MonthRange(loc, year, month)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		count int64
		total decimal.Decimal
	}
	buckets := map[string]*bucket{}

	err = a.db.WithConn(func(q store.DBTX) error {
		rows, err := q.QueryContext(ctx, `
			SELECT exit_time_utc, pnl_net
			FROM trades
			WHERE exit_time_utc >= ? AND exit_time_utc < ?`, start, end)
		if err != nil {
			return fmt.Errorf("month trades: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var exitMS int64
			var pnl float64
			if err := rows.Scan(&exitMS, &pnl); err != nil {
				return fmt.Errorf("scan month trade: %w", err)
			}
			date := tz.LocalDate(loc, exitMS)
			b, ok := buckets[date]
			if !ok {
				b = &bucket{}
				buckets[date] = b
			}
			b.count++
			b.total = b.total.Add(decimal.NewFromFloat(pnl))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	out := make([]DaySummary, 0, len(buckets))
	for date, b := range buckets {
		out = append(out, DaySummary{
			DateLocal:   date,
			TradeCount:  b.count,
			PnLNetTotal: b.total.InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateLocal < out[j].DateLocal })
	return out, nil
}

// DayTrades lists the trades that exited during the local date, earliest
// first. The window is local midnight to the next local midnight, so it is
// 23 or 25 hours long on DST change days.
func (a *Aggregator) DayTrades(ctx context.Context, zone, date string) ([]TradeHighlight, error) {
	loc, err := tz.Load(zone)
	if err != nil {
		return nil, err
	}
	start, end, err := tz.DayRange(loc, date)
	if err != nil {
		return nil, err
	}

	var out []TradeHighlight
	err = a.db.WithConn(func(q store.DBTX) error {
		rows, err := q.QueryContext(ctx, `
			SELECT id, symbol, qty, pnl_net, notes, exit_time_utc
			FROM trades
			WHERE exit_time_utc >= ? AND exit_time_utc < ?
			ORDER BY exit_time_utc ASC`, start, end)
		if err != nil {
			return fmt.Errorf("day trades: %w", err)
		}
		defer rows.Close()

		out = make([]TradeHighlight, 0)
		for rows.Next() {
			var h TradeHighlight
			if err := rows.Scan(&h.ID, &h.Symbol, &h.Qty, &h.PnLNet, &h.Notes, &h.ExitTimeUTC); err != nil {
				return fmt.Errorf("scan day trade: %w", err)
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	a.log.Debug("day trades", "date", date, "zone", zone, "count", len(out))
	return out, nil
}
