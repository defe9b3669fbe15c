package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/app"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change journal settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsTimezoneCmd = &cobra.Command{
	Use:   "timezone <IANA zone>",
	Short: "Set the timezone used for day and month views",
	Long: `Set the timezone used for day and month views.

Example:
  ftjournal settings timezone Europe/London`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsTimezone,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsTimezoneCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		s, err := a.Settings(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(s)
		}
		fmt.Printf("Timezone: %s\n", s.Timezone)
		return nil
	})
}

func runSettingsTimezone(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		s, err := a.UpdateSettings(ctx, app.SettingsUpdateRequest{Timezone: args[0]})
		if err != nil {
			return err
		}
		done("Timezone set to %s", s.Timezone)
		return nil
	})
}
