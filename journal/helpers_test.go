package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ftjournal/store"
)

func newTestDB(t *testing.T) *store.Manager {
	t.Helper()

	m := store.NewManager(nil)
	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, m.CreateNew(context.Background(), path, false, ""))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func ms(year int, month time.Month, day, hour, minute int) int64 {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC).UnixMilli()
}

// validInput exits at exitMS after a one hour hold.
func validInput(symbol string, exitMS int64, amount float64) TradeInput {
	return TradeInput{
		Market:          "futures",
		Symbol:          symbol,
		Side:            "long",
		Qty:             1,
		EntryTimeUTC:    exitMS - int64(time.Hour/time.Millisecond),
		ExitTimeUTC:     exitMS,
		Timezone:        "America/New_York",
		Session:         "ny",
		PnLAmount:       amount,
		PnLIncludesFees: true,
		Fees:            0,
	}
}

func countRows(t *testing.T, m *store.Manager, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, m.WithConn(func(q store.DBTX) error {
		return q.QueryRowContext(context.Background(), query, args...).Scan(&n)
	}))
	return n
}

func rawSetting(t *testing.T, m *store.Manager, key string) string {
	t.Helper()

	var raw string
	require.NoError(t, m.WithConn(func(q store.DBTX) error {
		return q.QueryRowContext(context.Background(), `SELECT value_json FROM settings WHERE key = ?`, key).Scan(&raw)
	}))
	return raw
}
