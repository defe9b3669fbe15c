package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/tz"
)

const exportPageSize = 500

// TradeLister is the slice of journal.TradeStore the exporter reads.
type TradeLister interface {
	List(ctx context.Context, limit, offset int) ([]journal.Trade, error)
}

// Export writes every trade to w under the Columns header, most recent
// exit first. Both the UTC millisecond and the local RFC3339 columns are
// filled so the file re-imports without depending on zone.
func Export(ctx context.Context, w io.Writer, trades TradeLister, zone string) (int, error) {
	loc, err := tz.Load(zone)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	n := 0
	for offset := 0; ; offset += exportPageSize {
		page, err := trades.List(ctx, exportPageSize, offset)
		if err != nil {
			return n, err
		}
		for _, t := range page {
			if err := cw.Write(exportRow(t, loc)); err != nil {
				return n, fmt.Errorf("write trade %s: %w", t.ID, err)
			}
			n++
		}
		if len(page) < exportPageSize {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	return n, nil
}

func exportRow(t journal.Trade, loc *time.Location) []string {
	return []string{
		t.Symbol,
		t.Side,
		f(t.Qty),
		strconv.FormatInt(t.EntryTimeUTC, 10),
		strconv.FormatInt(t.ExitTimeUTC, 10),
		tz.FromMillis(t.EntryTimeUTC, loc).Format(time.RFC3339),
		tz.FromMillis(t.ExitTimeUTC, loc).Format(time.RFC3339),
		t.Market,
		t.Session,
		f(t.PnLAmount),
		f(t.Fees),
		strconv.FormatBool(t.PnLIncludesFees),
		t.Notes,
	}
}

func f(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
