package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/app"
	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/tz"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Calendar views and daily notes",
	Long: `Calendar views and daily notes. Dates are local dates in the settings
timezone, so a trade that exits at 23:30 New York time lands on that New
York day however the clocks change.

Subcommands:
  month   - Per-day trade counts and net PnL for a month
  day     - The note and trades for one day
  today   - Same as day, for today
  note    - Read or write the note for a day
  link    - Attach a trade to a day's note
  unlink  - Detach a trade from a day's note

Examples:
  ftjournal journal month 2024-03
  ftjournal journal day 2024-03-10 --org
  ftjournal journal note 2024-03-10 "Chopped out early, sat on hands after"
  ftjournal journal link 2024-03-10 01HT...`,
}

var journalMonthCmd = &cobra.Command{
	Use:   "month <YYYY-MM>",
	Short: "Summarize a month by local day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalMonth,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Show the note and trades for a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the note and trades for today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalNoteCmd = &cobra.Command{
	Use:   "note <YYYY-MM-DD> [text]",
	Short: "Print the note for a day, or replace it with text",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runJournalNote,
}

var journalLinkCmd = &cobra.Command{
	Use:   "link <YYYY-MM-DD> <trade-id>",
	Short: "Attach a trade to a day's note",
	Args:  cobra.ExactArgs(2),
	RunE:  runJournalLink,
}

var journalUnlinkCmd = &cobra.Command{
	Use:   "unlink <YYYY-MM-DD> <trade-id>",
	Short: "Detach a trade from a day's note",
	Args:  cobra.ExactArgs(2),
	RunE:  runJournalUnlink,
}

var dayOrg bool

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalMonthCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalNoteCmd)
	journalCmd.AddCommand(journalLinkCmd)
	journalCmd.AddCommand(journalUnlinkCmd)

	journalDayCmd.Flags().BoolVar(&dayOrg, "org", false, "print as an Org-mode entry")
	journalTodayCmd.Flags().BoolVar(&dayOrg, "org", false, "print as an Org-mode entry")
}

func runJournalMonth(cmd *cobra.Command, args []string) error {
	m, err := time.Parse("2006-01", args[0])
	if err != nil {
		return fmt.Errorf("month must be YYYY-MM: %q", args[0])
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		days, err := a.MonthSummary(ctx, app.MonthSummaryRequest{Year: m.Year(), Month: int(m.Month())})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(days)
		}
		if len(days) == 0 {
			fmt.Printf("No trades in %s\n", args[0])
			return nil
		}

		var trades int64
		var net float64
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tTRADES\tNET")
		for _, d := range days {
			fmt.Fprintf(w, "%s\t%d\t%.2f\n", d.DateLocal, d.TradeCount, d.PnLNetTotal)
			trades += d.TradeCount
			net += d.PnLNetTotal
		}
		fmt.Fprintf(w, "TOTAL\t%d\t%.2f\n", trades, net)
		return w.Flush()
	})
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		return printDay(ctx, a, args[0])
	})
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		loc := settingsLoc(ctx, a)
		return printDay(ctx, a, tz.LocalDate(loc, tz.ToMillis(time.Now())))
	})
}

func printDay(ctx context.Context, a *app.App, date string) error {
	d, err := a.Day(ctx, app.DayRequest{Date: date})
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(d)
	}
	if dayOrg {
		out, err := journal.FormatDayOrg(d)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	fmt.Printf("%s (%s)\n", d.Date, d.Zone)
	if d.Entry.Text != "" {
		fmt.Printf("\n%s\n", strings.TrimRight(d.Entry.Text, "\n"))
	}
	if len(d.Trades) == 0 {
		fmt.Println("\nNo trades")
		return nil
	}

	loc, err := tz.Load(d.Zone)
	if err != nil {
		loc = time.UTC
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXIT\tSYMBOL\tQTY\tNET\tID")
	for _, t := range d.Trades {
		fmt.Fprintf(w, "%s\t%s\t%g\t%.2f\t%s\n",
			tz.FromMillis(t.ExitTimeUTC, loc).Format("15:04"), t.Symbol, t.Qty, t.PnLNet, t.ID)
	}
	fmt.Fprintf(w, "\t\t\t%.2f\t\n", d.NetTotal())
	return w.Flush()
}

func runJournalNote(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if len(args) == 1 {
			e, err := a.DailyEntry(ctx, app.DayRequest{Date: args[0]})
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(e)
			}
			fmt.Println(e.Text)
			return nil
		}

		e, err := a.SaveDailyEntry(ctx, app.DailyEntrySaveRequest{Date: args[0], Text: args[1]})
		if err != nil {
			return err
		}
		done("Saved note for %s", e.DateLocal)
		return nil
	})
}

func runJournalLink(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.LinkTrade(ctx, app.LinkRequest{Date: args[0], TradeID: args[1]}); err != nil {
			return err
		}
		done("Linked %s to %s", args[1], args[0])
		return nil
	})
}

func runJournalUnlink(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.UnlinkTrade(ctx, app.LinkRequest{Date: args[0], TradeID: args[1]}); err != nil {
			return err
		}
		done("Unlinked %s from %s", args[1], args[0])
		return nil
	})
}
