package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/app"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List and edit the trade checklist",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesSetCmd = &cobra.Command{
	Use:   "set <id> <label>",
	Short: "Add a rule or change its label and order",
	Long: `Add a rule or change its label and order. Trades created before a
rule exists show it unchecked.

Example:
  ftjournal rules set sized_down "Sized down after a loss" --order 25`,
	Args: cobra.ExactArgs(2),
	RunE: runRulesSet,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule and every trade's checkmark for it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesDelete,
}

var ruleOrder int64

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesSetCmd)
	rulesCmd.AddCommand(rulesDeleteCmd)

	rulesSetCmd.Flags().Int64Var(&ruleOrder, "order", 100, "sort order in the checklist")
}

func runRulesList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		rules, err := a.Rules(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(rules)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ORDER\tID\tLABEL")
		for _, r := range rules {
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.SortOrder, r.ID, r.Label)
		}
		return w.Flush()
	})
}

func runRulesSet(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		err := a.UpsertRule(ctx, app.RuleUpsertRequest{ID: args[0], Label: args[1], SortOrder: ruleOrder})
		if err != nil {
			return err
		}
		done("Rule %s saved", args[0])
		return nil
	})
}

func runRulesDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.DeleteRule(ctx, args[0]); err != nil {
			return err
		}
		done("Rule %s deleted", args[0])
		return nil
	})
}
