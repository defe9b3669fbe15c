package journal

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/ftjournal/tz"
)

// FormatTradeOrg renders a trade and its checklist as an Org-mode block.
// Structured facts go in the PROPERTIES drawer; the checklist becomes Org
// checkboxes in rule order.
func FormatTradeOrg(tw TradeWithRules, loc *time.Location) string {
	t := tw.Trade
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Symbol, t.Side, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":MARKET: %s\n", t.Market)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":QTY: %g\n", t.Qty)
	fmt.Fprintf(&b, ":ENTRY_TIME: %s\n", tz.FromMillis(t.EntryTimeUTC, loc).Format(time.RFC3339))
	fmt.Fprintf(&b, ":EXIT_TIME: %s\n", tz.FromMillis(t.ExitTimeUTC, loc).Format(time.RFC3339))
	fmt.Fprintf(&b, ":SESSION: %s\n", t.Session)
	fmt.Fprintf(&b, ":FEES: %.2f\n", t.Fees)
	fmt.Fprintf(&b, ":PNL_NET: %.2f\n", t.PnLNet)
	fmt.Fprintf(&b, ":PNL_GROSS: %.2f\n", t.PnLGross)
	b.WriteString(":END:\n")

	if len(tw.Rules) > 0 {
		b.WriteString("\n*** Checklist\n")
		for _, r := range tw.Rules {
			box := " "
			if tw.Checked[r.ID] {
				box = "X"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", box, r.Label)
		}
	}

	b.WriteString("\n*** Notes\n")
	if t.Notes != "" {
		b.WriteString(t.Notes)
		b.WriteString("\n")
	} else {
		b.WriteString("- \n")
	}
	return b.String()
}

// DayView is the data behind FormatDayOrg.
type DayView struct {
	Date   string
	Zone   string
	Entry  Entry
	Trades []TradeHighlight
}

// NetTotal sums the day's net PnL.
func (d DayView) NetTotal() float64 {
	var sum float64
	for _, t := range d.Trades {
		sum += t.PnLNet
	}
	return sum
}

var dayOrgFuncs = template.FuncMap{
	"clock": func(ms int64, zone string) string {
		loc, err := tz.Load(zone)
		if err != nil {
			loc = time.UTC
		}
		return tz.FromMillis(ms, loc).Format("15:04")
	},
	"short": shortID,
}

var dayOrgTmpl = template.Must(template.New("day").Funcs(dayOrgFuncs).Parse(dayOrgTemplate))

// FormatDayOrg renders one journal day: the daily note and a table of the
// trades that exited that day.
func FormatDayOrg(d DayView) (string, error) {
	var buf bytes.Buffer
	if err := dayOrgTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render day %s: %w", d.Date, err)
	}
	return buf.String(), nil
}

const dayOrgTemplate = `* JOURNAL: {{.Date}}
:PROPERTIES:
:DATE:     {{.Date}}
:TIMEZONE: {{.Zone}}
:TRADES:   {{len .Trades}}
:NET_PNL:  {{printf "%.2f" .NetTotal}}
:END:

** Notes
{{- if .Entry.Text }}
{{.Entry.Text}}
{{- else }}
- 
{{- end }}

** Trades
{{- if .Trades }}
| Exit  | Symbol | Qty | Net PnL | ID | Notes |
|-------+--------+-----+---------+----+-------|
{{- range .Trades }}
| {{clock .ExitTimeUTC $.Zone}} | {{.Symbol}} | {{.Qty}} | {{printf "%.2f" .PnLNet}} | {{short .ID}} | {{.Notes}} |
{{- end }}
{{- else }}
# no trades
{{- end }}
`

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
