package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tw := TradeWithRules{
		Trade: Trade{
			ID:           "01HV5Z8Q3M6N7P8R9S0T1V2W3X",
			Market:       "futures",
			Symbol:       "ES",
			Side:         "long",
			Qty:          2,
			EntryTimeUTC: ms(2024, 1, 2, 14, 30),
			ExitTimeUTC:  ms(2024, 1, 2, 15, 0),
			Session:      "ny",
			Fees:         4.5,
			PnLNet:       120,
			PnLGross:     124.5,
			Notes:        "clean breakout",
		},
		Rules: []Rule{
			{ID: "followed_plan", Label: "Followed plan"},
			{ID: "no_fomo", Label: "No FOMO"},
		},
		Checked: map[string]bool{"followed_plan": true},
	}

	out := FormatTradeOrg(tw, loc)
	assert.Contains(t, out, "** Trade: ES long (01HV5Z8Q)\n")
	assert.Contains(t, out, ":ID: 01HV5Z8Q3M6N7P8R9S0T1V2W3X\n")
	assert.Contains(t, out, ":QTY: 2\n")
	assert.Contains(t, out, ":ENTRY_TIME: 2024-01-02T09:30:00-05:00\n")
	assert.Contains(t, out, ":EXIT_TIME: 2024-01-02T10:00:00-05:00\n")
	assert.Contains(t, out, ":PNL_NET: 120.00\n")
	assert.Contains(t, out, ":PNL_GROSS: 124.50\n")
	assert.Contains(t, out, "- [X] Followed plan\n- [ ] No FOMO\n")
	assert.Contains(t, out, "*** Notes\nclean breakout\n")
}

func TestFormatDayOrg(t *testing.T) {
	t.Parallel()

	d := DayView{
		Date:  "2024-01-02",
		Zone:  "America/New_York",
		Entry: Entry{DateLocal: "2024-01-02", Text: "slow morning"},
		Trades: []TradeHighlight{
			{ID: "01HV5Z8Q3M6N7P8R9S0T1V2W3X", Symbol: "ES", Qty: 1, PnLNet: 50, ExitTimeUTC: ms(2024, 1, 2, 15, 0)},
			{ID: "01HV5Z9A", Symbol: "NQ", Qty: 1, PnLNet: -20.25, Notes: "late", ExitTimeUTC: ms(2024, 1, 2, 20, 45)},
		},
	}
	assert.InDelta(t, 29.75, d.NetTotal(), 1e-9)

	out, err := FormatDayOrg(d)
	require.NoError(t, err)
	assert.Contains(t, out, "* JOURNAL: 2024-01-02\n")
	assert.Contains(t, out, ":TRADES:   2\n")
	assert.Contains(t, out, ":NET_PNL:  29.75\n")
	assert.Contains(t, out, "** Notes\nslow morning\n")
	assert.Contains(t, out, "| 10:00 | ES | 1 | 50.00 | 01HV5Z8Q |  |\n")
	assert.Contains(t, out, "| 15:45 | NQ | 1 | -20.25 | 01HV5Z9A | late |\n")

	empty, err := FormatDayOrg(DayView{Date: "2024-01-03", Zone: "UTC"})
	require.NoError(t, err)
	assert.Contains(t, empty, "# no trades")
	assert.Contains(t, empty, ":NET_PNL:  0.00\n")
}
