// Package csvimport loads trades from header-driven CSV files and writes
// the journal back out in the same shape.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/tz"
)

// Columns is the header the importer understands and the exporter writes.
// Only symbol, side and qty must be present; the rest are optional.
var Columns = []string{
	"symbol", "side", "qty",
	"entry_time_utc_ms", "exit_time_utc_ms", "entry_local", "exit_local",
	"market", "session", "pnl_amount", "fees", "pnl_includes_fees", "notes",
}

var requiredColumns = []string{"symbol", "side", "qty"}

const (
	defaultMarket  = "futures"
	defaultSession = "other"
)

// localLayouts are tried in order after RFC3339, most specific first.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// TradeCreator is the slice of journal.TradeStore the importer drives.
type TradeCreator interface {
	Create(ctx context.Context, in journal.TradeInput) (journal.Trade, error)
}

// Result summarizes one import. Errors holds one "line N: ..." message
// per failed row.
type Result struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// RowError is a single row's parse or create failure. Line is 1-based and
// counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// Importer maps CSV rows to trade inputs.
type Importer struct {
	trades TradeCreator
	log    *slog.Logger
}

// NewImporter returns an Importer that creates trades through trades.
func NewImporter(trades TradeCreator, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{trades: trades, log: log.With("component", "csvimport")}
}

// ImportFile opens path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path, zone string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open csv %s: %v", errs.ErrIO, path, err)
	}
	defer f.Close()
	return im.Import(ctx, f, zone)
}

// Import reads every row from r. Local times are read in zone. A blank
// symbol skips the row; any other row failure is collected and the batch
// carries on. The returned error is reserved for problems with the whole
// file: unknown zone, unreadable input or a header missing a required column.
func (im *Importer) Import(ctx context.Context, r io.Reader, zone string) (Result, error) {
	loc, err := tz.Load(zone)
	if err != nil {
		return Result{}, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{Errors: []string{}}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: read csv header: %v", errs.ErrIO, err)
	}
	cols := indexHeader(header)
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return Result{}, fmt.Errorf("%w: csv header missing column %q", errs.ErrValidation, name)
		}
	}

	res := Result{Errors: []string{}}
	for i := 0; ; i++ {
		line := i + 2
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return res, fmt.Errorf("%w: read csv: %v", errs.ErrIO, err)
			}
			res.Errors = append(res.Errors, (&RowError{Line: line, Err: pe.Err}).Error())
			continue
		}

		row := record{cols: cols, fields: rec}
		if row.get("symbol") == "" {
			res.Skipped++
			continue
		}

		in, err := row.tradeInput(loc)
		if err != nil {
			res.Errors = append(res.Errors, (&RowError{Line: line, Err: err}).Error())
			continue
		}
		if _, err := im.trades.Create(ctx, in); err != nil {
			rerr := &RowError{Line: line, Err: fmt.Errorf("failed to create trade: %w", err)}
			res.Errors = append(res.Errors, rerr.Error())
			continue
		}
		res.Created++
	}

	im.log.Info("csv import finished",
		"zone", loc.String(), "created", res.Created, "skipped", res.Skipped, "errors", len(res.Errors))
	return res, nil
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

type record struct {
	cols   map[string]int
	fields []string
}

// get returns the trimmed field for column name, or "" when the column or
// field is absent.
func (r record) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) tradeInput(loc *time.Location) (journal.TradeInput, error) {
	qty, err := r.float("qty", nil)
	if err != nil {
		return journal.TradeInput{}, err
	}
	entry, err := r.instant("entry_time_utc_ms", "entry_local", loc)
	if err != nil {
		return journal.TradeInput{}, err
	}
	exit, err := r.instant("exit_time_utc_ms", "exit_local", loc)
	if err != nil {
		return journal.TradeInput{}, err
	}
	zero := 0.0
	amount, err := r.float("pnl_amount", &zero)
	if err != nil {
		return journal.TradeInput{}, err
	}
	fees, err := r.float("fees", &zero)
	if err != nil {
		return journal.TradeInput{}, err
	}
	includes := true
	if s := r.get("pnl_includes_fees"); s != "" {
		includes, err = strconv.ParseBool(s)
		if err != nil {
			return journal.TradeInput{}, fmt.Errorf("invalid pnl_includes_fees %q", s)
		}
	}

	return journal.TradeInput{
		Market:          orDefault(r.get("market"), defaultMarket),
		Symbol:          r.get("symbol"),
		Side:            r.get("side"),
		Qty:             qty,
		EntryTimeUTC:    entry,
		ExitTimeUTC:     exit,
		Timezone:        loc.String(),
		Session:         orDefault(r.get("session"), defaultSession),
		PnLAmount:       amount,
		PnLIncludesFees: includes,
		Fees:            fees,
		Notes:           r.get("notes"),
	}, nil
}

// float parses column name; def is used for a blank field, nil makes it required.
func (r record) float(name string, def *float64) (float64, error) {
	s := r.get(name)
	if s == "" {
		if def == nil {
			return 0, fmt.Errorf("%s is required", name)
		}
		return *def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// instant prefers the UTC millisecond column and falls back to the local one.
func (r record) instant(msCol, localCol string, loc *time.Location) (int64, error) {
	if s := r.get(msCol); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", msCol, s)
		}
		return ms, nil
	}
	if s := r.get(localCol); s != "" {
		return ParseLocal(loc, s)
	}
	return 0, fmt.Errorf("missing %s or %s", msCol, localCol)
}

// ParseLocal reads s as RFC3339 or as a wall-clock time in loc. Wall
// times that fall in a DST gap or overlap fail with errs.ErrTimezone.
func ParseLocal(loc *time.Location, s string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return tz.ToMillis(t), nil
	}
	for _, layout := range localLayouts {
		naive, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t, err := tz.ResolveWall(loc, naive)
		if err != nil {
			return 0, err
		}
		return tz.ToMillis(t), nil
	}
	return 0, fmt.Errorf("unsupported datetime format: %s", s)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
