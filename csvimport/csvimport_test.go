package csvimport

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ftjournal/errs"
	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/store"
)

const ny = "America/New_York"

type fakeCreator struct {
	inputs []journal.TradeInput
}

func (f *fakeCreator) Create(_ context.Context, in journal.TradeInput) (journal.Trade, error) {
	if err := in.Validate(); err != nil {
		return journal.Trade{}, err
	}
	f.inputs = append(f.inputs, in)
	return journal.Trade{Symbol: in.Symbol}, nil
}

func newTradeStore(t *testing.T) *journal.TradeStore {
	t.Helper()

	m := store.NewManager(nil)
	require.NoError(t, m.CreateNew(context.Background(), filepath.Join(t.TempDir(), "j.db"), false, ""))
	t.Cleanup(func() { _ = m.Close() })
	return journal.NewTradeStore(m, nil)
}

func TestImportDefaultsAndSkips(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"symbol,side,qty,entry_time_utc_ms,exit_time_utc_ms,pnl_amount",
		"ES,long,2,1704205800000,1704207600000,125.5",
		"  ,short,1,1704205800000,1704207600000,10",
		",,,,,",
	}, "\n")

	fc := &fakeCreator{}
	res, err := NewImporter(fc, nil).Import(context.Background(), strings.NewReader(data), ny)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Skipped: 2, Errors: []string{}}, res)

	require.Len(t, fc.inputs, 1)
	in := fc.inputs[0]
	assert.Equal(t, "futures", in.Market)
	assert.Equal(t, "other", in.Session)
	assert.Equal(t, ny, in.Timezone)
	assert.True(t, in.PnLIncludesFees)
	assert.Equal(t, 0.0, in.Fees)
	assert.Equal(t, 125.5, in.PnLAmount)
	assert.Equal(t, int64(1704205800000), in.EntryTimeUTC)
	assert.Equal(t, int64(1704207600000), in.ExitTimeUTC)
}

func TestImportBadDatetimeReportsLine(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"symbol,side,qty,entry_local,exit_local",
		"ES,long,1,2024-01-02 09:30,2024-01-02 10:00",
		"NQ,long,1,yesterday,2024-01-02 10:00",
		"CL,short,1,2024-01-02T09:30,2024-01-02T11:00",
	}, "\n")

	ts := newTradeStore(t)
	res, err := NewImporter(ts, nil).Import(context.Background(), strings.NewReader(data), ny)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, []string{"line 3: unsupported datetime format: yesterday"}, res.Errors)

	trades, err := ts.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "CL", trades[0].Symbol)
	assert.Equal(t, time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC).UnixMilli(), trades[0].ExitTimeUTC)
}

func TestImportNonFiniteNumbersAreRowErrors(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"symbol,side,qty,entry_time_utc_ms,exit_time_utc_ms,pnl_amount,fees",
		"ES,long,1,1704205800000,1704207600000,NaN,0",
		"NQ,long,1,1704205800000,1704207600000,10,+Inf",
		"RTY,long,Infinity,1704205800000,1704207600000,10,0",
		"CL,short,2,1704205800000,1704207600000,-12.5,1",
	}, "\n")

	ts := newTradeStore(t)
	var res Result
	var err error
	require.NotPanics(t, func() {
		res, err = NewImporter(ts, nil).Import(context.Background(), strings.NewReader(data), ny)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, []string{
		`line 2: invalid pnl_amount "NaN"`,
		`line 3: invalid fees "+Inf"`,
		`line 4: invalid qty "Infinity"`,
	}, res.Errors)

	trades, err := ts.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "CL", trades[0].Symbol)
	assert.Equal(t, -12.5, trades[0].PnLNet)
}

func TestImportDSTRowsFail(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"symbol,side,qty,entry_local,exit_local",
		"ES,long,1,2024-11-03 00:30,2024-11-03 01:30",
		"ES,long,1,2024-03-10 01:00,2024-03-10 02:30",
		"ES,long,1,2024-11-03T01:30:00-04:00,2024-11-03T01:45:00-05:00",
	}, "\n")

	fc := &fakeCreator{}
	res, err := NewImporter(fc, nil).Import(context.Background(), strings.NewReader(data), ny)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created, "offset-aware times are never ambiguous")
	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "line 2: "))
	assert.Contains(t, res.Errors[0], "ambiguous")
	assert.True(t, strings.HasPrefix(res.Errors[1], "line 3: "))
	assert.Contains(t, res.Errors[1], "does not exist")
}

func TestImportCreateFailureIsRowError(t *testing.T) {
	t.Parallel()

	data := "symbol,side,qty,entry_time_utc_ms,exit_time_utc_ms,fees,pnl_includes_fees\n" +
		"ES,long,0,1000,2000,1,false\n" +
		"ES,long,1,2000,1000,1,false\n" +
		"ES,long,abc,1000,2000,1,false\n" +
		"ES,long,1,1000,2000,1,maybe\n" +
		"ES,long,1,,2000,1,true\n" +
		"ES,long,1,1000,2000,1,false\n"

	fc := &fakeCreator{}
	res, err := NewImporter(fc, nil).Import(context.Background(), strings.NewReader(data), "UTC")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, []string{
		"line 2: failed to create trade: validation failed: qty must be > 0",
		"line 3: failed to create trade: validation failed: exit time must be after entry time",
		`line 4: invalid qty "abc"`,
		`line 5: invalid pnl_includes_fees "maybe"`,
		"line 6: missing entry_time_utc_ms or entry_local",
	}, res.Errors)
	assert.False(t, fc.inputs[0].PnLIncludesFees)
}

func TestImportWholeFileErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	im := NewImporter(&fakeCreator{}, nil)

	_, err := im.Import(ctx, strings.NewReader("symbol,side,qty\n"), "Nowhere/Land")
	assert.ErrorIs(t, err, errs.ErrTimezone)

	_, err = im.Import(ctx, strings.NewReader("symbol,qty\nES,1\n"), ny)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = im.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.csv"), ny)
	assert.ErrorIs(t, err, errs.ErrIO)

	res, err := im.Import(ctx, strings.NewReader(""), ny)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
}

func TestImportHeaderIsCaseAndOrderInsensitive(t *testing.T) {
	t.Parallel()

	data := "\ufeffNotes, QTY ,Side,Symbol,Exit_Time_UTC_ms,Entry_Time_UTC_ms\n" +
		"\"faded the open, small size\",3,short,MES,5000,4000\n"

	fc := &fakeCreator{}
	res, err := NewImporter(fc, nil).Import(context.Background(), strings.NewReader(data), ny)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	assert.Equal(t, "faded the open, small size", fc.inputs[0].Notes)
	assert.Equal(t, 3.0, fc.inputs[0].Qty)
	assert.Equal(t, "MES", fc.inputs[0].Symbol)
}

func TestParseLocal(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation(ny)
	require.NoError(t, err)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02T09:30:00Z", time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)},
		{"2024-07-02T09:30:00+02:00", time.Date(2024, 7, 2, 7, 30, 0, 0, time.UTC)},
		{"2024-01-02T09:30", time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)},
		{"2024-07-02 09:30:15", time.Date(2024, 7, 2, 13, 30, 15, 0, time.UTC)},
		{"2024-07-02 09:30", time.Date(2024, 7, 2, 13, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocal(loc, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want.UnixMilli(), got)
		})
	}

	_, err = ParseLocal(loc, "2024/01/02 09:30")
	assert.Error(t, err)
	_, err = ParseLocal(loc, "2024-11-03 01:30")
	assert.ErrorIs(t, err, errs.ErrTimezone)
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := newTradeStore(t)
	for i, sym := range []string{"ES", "NQ", "CL"} {
		exit := time.Date(2024, 3, 10, 13+i, 0, 0, 0, time.UTC).UnixMilli()
		_, err := src.Create(ctx, journal.TradeInput{
			Market: "futures", Symbol: sym, Side: "long", Qty: float64(i + 1),
			EntryTimeUTC: exit - 60_000, ExitTimeUTC: exit, Timezone: ny, Session: "ny",
			PnLAmount: 12.25 * float64(i), Fees: 1.5, PnLIncludesFees: i%2 == 0,
			Notes: "note, with comma",
		})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := Export(ctx, &buf, src, ny)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Columns, ",")+"\n"))

	dst := newTradeStore(t)
	res, err := NewImporter(dst, nil).Import(ctx, &buf, ny)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 3, Errors: []string{}}, res)

	before, err := src.List(ctx, 10, 0)
	require.NoError(t, err)
	after, err := dst.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		b, a := before[i], after[i]
		assert.Equal(t, b.Symbol, a.Symbol)
		assert.Equal(t, b.Qty, a.Qty)
		assert.Equal(t, b.EntryTimeUTC, a.EntryTimeUTC)
		assert.Equal(t, b.ExitTimeUTC, a.ExitTimeUTC)
		assert.Equal(t, b.PnLNet, a.PnLNet)
		assert.Equal(t, b.PnLGross, a.PnLGross)
		assert.Equal(t, b.Session, a.Session)
		assert.Equal(t, b.Notes, a.Notes)
	}
}
