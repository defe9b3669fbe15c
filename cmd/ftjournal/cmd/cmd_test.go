package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ftjournal/app"
	"github.com/rustyeddy/ftjournal/logger"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// Commands share package-level flag state, so this test is not parallel.
func TestCommandFlow(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "ftjournal.json")

	require.NoError(t, execute(t, "--config", cfg, "init"))
	require.NoError(t, execute(t, "--config", cfg, "settings", "timezone", "America/New_York"))
	require.NoError(t, execute(t, "--config", cfg, "trades", "add",
		"--symbol", "ES", "--side", "long", "--qty", "2",
		"--entry", "2024-03-09 23:40", "--exit", "2024-03-10 03:30",
		"--pnl", "100", "--fees", "4", "--check", "followed_plan"))
	require.NoError(t, execute(t, "--config", cfg, "journal", "month", "2024-03"))

	a, err := app.New(app.Options{ConfigPath: cfg, Log: logger.Discard()})
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()
	require.NoError(t, a.Autoload(ctx))

	trades, err := a.ListTrades(ctx, app.TradesListRequest{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "America/New_York", tr.Timezone)
	assert.InDelta(t, 100.0, tr.PnLNet, 1e-9)
	assert.InDelta(t, 104.0, tr.PnLGross, 1e-9)

	// 03:30 on the spring-forward morning is EDT.
	exit := time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, exit.UnixMilli(), tr.ExitTimeUTC)

	days, err := a.MonthSummary(ctx, app.MonthSummaryRequest{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-03-10", days[0].DateLocal)

	tw, err := a.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, tw.Checked["followed_plan"])
	assert.False(t, tw.Checked["no_fomo"])
}

func TestInitRefusesExisting(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "ftjournal.json")

	require.NoError(t, execute(t, "--config", cfg, "init"))
	assert.Error(t, execute(t, "--config", cfg, "init"))
}

func TestBackupImportNeedsSource(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "ftjournal.json")

	err := execute(t, "--config", cfg, "backup", "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--key")
}
