package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rustyeddy/ftjournal/app"
	"github.com/rustyeddy/ftjournal/csvimport"
	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/tz"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List, show and edit trades",
	Long: `List, show and edit trades.

Times given to add and update are wall-clock times in the settings
timezone ("2024-03-08 15:30") or RFC3339 with an offset.

Examples:
  ftjournal trades list --limit 20
  ftjournal trades show 01HT... --org
  ftjournal trades add --symbol ES --side long --qty 2 \
      --entry "2024-03-08 09:31" --exit "2024-03-08 10:02" \
      --pnl 250 --fees 4.5 --check followed_plan --check no_fomo
  ftjournal trades update 01HT... --notes "held through news"
  ftjournal trades export -o trades.csv`,
}

var tradesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades, most recent exit first",
	Args:  cobra.NoArgs,
	RunE:  runTradesList,
}

var tradesShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show a trade and its checklist",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradesShow,
}

var tradesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a trade",
	Args:  cobra.NoArgs,
	RunE:  runTradesAdd,
}

var tradesUpdateCmd = &cobra.Command{
	Use:   "update <trade-id>",
	Short: "Change a trade; flags not given keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradesUpdate,
}

var tradesDeleteCmd = &cobra.Command{
	Use:   "delete <trade-id>",
	Short: "Delete a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradesDelete,
}

var tradesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every trade as CSV",
	Args:  cobra.NoArgs,
	RunE:  runTradesExport,
}

var (
	listLimit  int
	listOffset int
	showOrg    bool
	exportOut  string

	tfSymbol      string
	tfSide        string
	tfQty         float64
	tfEntry       string
	tfExit        string
	tfMarket      string
	tfSession     string
	tfPnL         float64
	tfFees        float64
	tfExcludeFees bool
	tfNotes       string
	tfCheck       []string
	tfUncheck     []string
)

func init() {
	rootCmd.AddCommand(tradesCmd)
	tradesCmd.AddCommand(tradesListCmd)
	tradesCmd.AddCommand(tradesShowCmd)
	tradesCmd.AddCommand(tradesAddCmd)
	tradesCmd.AddCommand(tradesUpdateCmd)
	tradesCmd.AddCommand(tradesDeleteCmd)
	tradesCmd.AddCommand(tradesExportCmd)

	tradesListCmd.Flags().IntVar(&listLimit, "limit", app.DefaultListLimit, "maximum trades to list")
	tradesListCmd.Flags().IntVar(&listOffset, "offset", 0, "trades to skip")

	tradesShowCmd.Flags().BoolVar(&showOrg, "org", false, "print as an Org-mode block")

	tradesExportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")

	tradeFlags(tradesAddCmd.Flags())
	tradeFlags(tradesUpdateCmd.Flags())
	tradesAddCmd.MarkFlagRequired("symbol")
	tradesAddCmd.MarkFlagRequired("side")
	tradesAddCmd.MarkFlagRequired("qty")
	tradesAddCmd.MarkFlagRequired("entry")
	tradesAddCmd.MarkFlagRequired("exit")
}

func tradeFlags(fs *pflag.FlagSet) {
	fs.StringVar(&tfSymbol, "symbol", "", "instrument symbol")
	fs.StringVar(&tfSide, "side", "", "long or short")
	fs.Float64Var(&tfQty, "qty", 0, "quantity, > 0")
	fs.StringVar(&tfEntry, "entry", "", "entry time")
	fs.StringVar(&tfExit, "exit", "", "exit time")
	fs.StringVar(&tfMarket, "market", "futures", "futures, forex or options")
	fs.StringVar(&tfSession, "session", "other", "asia, london, ny or other")
	fs.Float64Var(&tfPnL, "pnl", 0, "PnL amount as reported by the broker")
	fs.Float64Var(&tfFees, "fees", 0, "fees, >= 0")
	fs.BoolVar(&tfExcludeFees, "pnl-excludes-fees", false, "the PnL amount is gross of fees")
	fs.StringVar(&tfNotes, "notes", "", "free-form notes")
	fs.StringArrayVar(&tfCheck, "check", nil, "rule id to check (repeatable)")
	fs.StringArrayVar(&tfUncheck, "uncheck", nil, "rule id to uncheck (repeatable)")
}

func runTradesList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		trades, err := a.ListTrades(ctx, app.TradesListRequest{Limit: listLimit, Offset: listOffset})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(trades)
		}
		if len(trades) == 0 {
			fmt.Println("No trades")
			return nil
		}

		loc := settingsLoc(ctx, a)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEXIT\tSYMBOL\tSIDE\tQTY\tNET\tGROSS")
		for _, t := range trades {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%.2f\t%.2f\n",
				t.ID,
				tz.FromMillis(t.ExitTimeUTC, loc).Format("2006-01-02 15:04"),
				t.Symbol, t.Side, t.Qty, t.PnLNet, t.PnLGross)
		}
		return w.Flush()
	})
}

func runTradesShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		tw, err := a.GetTrade(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get trade: %w", err)
		}
		if jsonOut {
			return printJSON(tw)
		}

		loc := settingsLoc(ctx, a)
		if showOrg {
			fmt.Print(journal.FormatTradeOrg(tw, loc))
			return nil
		}

		t := tw.Trade
		fmt.Printf("Trade %s\n", t.ID)
		fmt.Printf("  %s %s %g (%s, %s)\n", t.Symbol, t.Side, t.Qty, t.Market, t.Session)
		fmt.Printf("  Entry: %s\n", tz.FromMillis(t.EntryTimeUTC, loc).Format(time.RFC3339))
		fmt.Printf("  Exit:  %s\n", tz.FromMillis(t.ExitTimeUTC, loc).Format(time.RFC3339))
		fmt.Printf("  Net:   %.2f  Gross: %.2f  Fees: %.2f\n", t.PnLNet, t.PnLGross, t.Fees)
		for _, r := range tw.Rules {
			box := " "
			if tw.Checked[r.ID] {
				box = "x"
			}
			fmt.Printf("  [%s] %s\n", box, r.Label)
		}
		if t.Notes != "" {
			fmt.Printf("  Notes: %s\n", t.Notes)
		}
		return nil
	})
}

func runTradesAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		s, err := a.Settings(ctx)
		if err != nil {
			return err
		}
		in := journal.TradeInput{
			Market:          tfMarket,
			Symbol:          tfSymbol,
			Side:            tfSide,
			Qty:             tfQty,
			Timezone:        s.Timezone,
			Session:         tfSession,
			PnLAmount:       tfPnL,
			PnLIncludesFees: !tfExcludeFees,
			Fees:            tfFees,
			Notes:           tfNotes,
		}
		if err := applyTimes(cmd.Flags(), &in); err != nil {
			return err
		}
		applyChecks(&in)

		t, err := a.CreateTrade(ctx, in)
		if err != nil {
			return fmt.Errorf("create trade: %w", err)
		}
		if jsonOut {
			return printJSON(t)
		}
		done("Trade %s recorded (net %.2f)", t.ID, t.PnLNet)
		return nil
	})
}

func runTradesUpdate(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		cur, err := a.GetTrade(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get trade: %w", err)
		}
		t := cur.Trade
		in := journal.TradeInput{
			Market:          t.Market,
			Symbol:          t.Symbol,
			Side:            t.Side,
			Qty:             t.Qty,
			EntryTimeUTC:    t.EntryTimeUTC,
			ExitTimeUTC:     t.ExitTimeUTC,
			Timezone:        t.Timezone,
			Session:         t.Session,
			PnLAmount:       t.PnLAmount,
			PnLIncludesFees: t.PnLIncludesFees,
			Fees:            t.Fees,
			Notes:           t.Notes,
		}

		fs := cmd.Flags()
		if fs.Changed("market") {
			in.Market = tfMarket
		}
		if fs.Changed("symbol") {
			in.Symbol = tfSymbol
		}
		if fs.Changed("side") {
			in.Side = tfSide
		}
		if fs.Changed("qty") {
			in.Qty = tfQty
		}
		if fs.Changed("session") {
			in.Session = tfSession
		}
		if fs.Changed("pnl") {
			in.PnLAmount = tfPnL
		}
		if fs.Changed("fees") {
			in.Fees = tfFees
		}
		if fs.Changed("pnl-excludes-fees") {
			in.PnLIncludesFees = !tfExcludeFees
		}
		if fs.Changed("notes") {
			in.Notes = tfNotes
		}
		if err := applyTimes(fs, &in); err != nil {
			return err
		}
		applyChecks(&in)

		updated, err := a.UpdateTrade(ctx, app.TradeUpdateRequest{ID: args[0], Input: in})
		if err != nil {
			return fmt.Errorf("update trade: %w", err)
		}
		if jsonOut {
			return printJSON(updated)
		}
		done("Trade %s updated (net %.2f)", updated.ID, updated.PnLNet)
		return nil
	})
}

func runTradesDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.DeleteTrade(ctx, args[0]); err != nil {
			return fmt.Errorf("delete trade: %w", err)
		}
		done("Trade %s deleted", args[0])
		return nil
	})
}

func runTradesExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer f.Close()
			out = f
		}
		n, err := a.ExportCSV(ctx, out)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if exportOut != "" {
			done("Exported %d trades to %s", n, exportOut)
		}
		return nil
	})
}

// applyTimes parses --entry and --exit, when given, in the trade's timezone.
func applyTimes(fs *pflag.FlagSet, in *journal.TradeInput) error {
	loc, err := tz.Load(in.Timezone)
	if err != nil {
		return err
	}
	if fs.Changed("entry") {
		if in.EntryTimeUTC, err = csvimport.ParseLocal(loc, tfEntry); err != nil {
			return fmt.Errorf("--entry: %w", err)
		}
	}
	if fs.Changed("exit") {
		if in.ExitTimeUTC, err = csvimport.ParseLocal(loc, tfExit); err != nil {
			return fmt.Errorf("--exit: %w", err)
		}
	}
	return nil
}

func applyChecks(in *journal.TradeInput) {
	if len(tfCheck) == 0 && len(tfUncheck) == 0 {
		return
	}
	in.RulesChecked = make(map[string]bool, len(tfCheck)+len(tfUncheck))
	for _, id := range tfCheck {
		in.RulesChecked[id] = true
	}
	for _, id := range tfUncheck {
		in.RulesChecked[id] = false
	}
}

// settingsLoc is the settings timezone, or UTC when it cannot be read.
func settingsLoc(ctx context.Context, a *app.App) *time.Location {
	s, err := a.Settings(ctx)
	if err != nil {
		return time.UTC
	}
	loc, err := tz.Load(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
