package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the journal is initialized, encrypted and unlocked",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new journal database",
	Long: `Create the journal database and write the config file that points at it.
An existing database file is never overwritten.

Examples:
  ftjournal init
  ftjournal init --encrypted --passphrase 'correct horse'
  FTJOURNAL_PASSPHRASE=... ftjournal init --encrypted --db ~/journals/main.db`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Check that the journal opens with the given passphrase",
	Args:  cobra.NoArgs,
	RunE:  runUnlock,
}

var initEncrypted bool

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(unlockCmd)

	initCmd.Flags().BoolVar(&initEncrypted, "encrypted", false, "encrypt the database with SQLCipher")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		printStatus(a.Status())
		return nil
	})
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Initialize(cmd.Context(), app.InitRequest{Encrypted: initEncrypted, Passphrase: secret()})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if jsonOut {
		return printJSON(st)
	}
	done("Created journal: %s", st.DBPath)
	fmt.Printf("  Config: %s\n", st.ConfigPath)
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Unlock(cmd.Context(), app.UnlockRequest{Passphrase: secret()})
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	printStatus(st)
	return nil
}

func printStatus(st app.StatusResult) {
	if jsonOut {
		_ = printJSON(st)
		return
	}
	fmt.Printf("Config:      %s\n", st.ConfigPath)
	if st.DBPath != "" {
		fmt.Printf("Database:    %s\n", st.DBPath)
	}
	fmt.Printf("Configured:  %s\n", check(st.DB.Configured))
	fmt.Printf("Encrypted:   %s\n", check(st.DB.Encrypted))
	fmt.Printf("Unlocked:    %s\n", check(st.DB.Unlocked))
	fmt.Printf("SQLCipher:   %s\n", check(st.Cipher))
}
