package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/app"
)

var importCSVCmd = &cobra.Command{
	Use:   "import-csv <file>",
	Short: "Import trades from a CSV file",
	Long: `Import trades from a CSV file with a header row. symbol, side and qty
columns are required; entry and exit times may be given as epoch
milliseconds (entry_time_utc_ms, exit_time_utc_ms) or as wall-clock
times (entry_local, exit_local) in the --tz zone. Rows that fail are reported by
line number and the rest are imported.

Example:
  ftjournal import-csv fills.csv --tz America/Chicago`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCSV,
}

var importTZ string

func init() {
	rootCmd.AddCommand(importCSVCmd)

	importCSVCmd.Flags().StringVar(&importTZ, "tz", "", "timezone of wall-clock times (default is the settings timezone)")
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		res, err := a.ImportCSV(ctx, app.CSVImportRequest{Path: args[0], Timezone: importTZ})
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if jsonOut {
			return printJSON(res)
		}
		done("Imported %d trades, skipped %d", res.Created, res.Skipped)
		for _, e := range res.Errors {
			fmt.Printf("  %s\n", e)
		}
		return nil
	})
}
