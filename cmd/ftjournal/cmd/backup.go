package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/app"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the journal database out or restore it",
	Long: `Copy the journal database out or restore it. The live database is
closed for the copy and reopened afterwards; an encrypted journal stays
locked until the next unlock.

Examples:
  ftjournal backup export
  ftjournal backup export ~/Dropbox/journal.db
  ftjournal backup export --remote
  ftjournal backup import ~/Dropbox/journal.db
  ftjournal backup import --key backups/ftjournal-20240310-211500.db
  ftjournal backup list-remote`,
}

var backupExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write a copy of the database",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Replace the database with a backup",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupImport,
}

var backupListRemoteCmd = &cobra.Command{
	Use:   "list-remote",
	Short: "List backups in the S3 mirror",
	Args:  cobra.NoArgs,
	RunE:  runBackupListRemote,
}

var (
	backupRemote bool
	backupKey    string
)

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	backupCmd.AddCommand(backupListRemoteCmd)

	backupExportCmd.Flags().BoolVar(&backupRemote, "remote", false, "also upload to the configured S3 mirror")
	backupImportCmd.Flags().StringVar(&backupKey, "key", "", "restore this object from the S3 mirror")
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	req := app.BackupExportRequest{Remote: backupRemote}
	if len(args) == 1 {
		req.Path = args[0]
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		res, err := a.ExportBackup(ctx, req)
		if err != nil {
			return fmt.Errorf("backup export: %w", err)
		}
		if jsonOut {
			return printJSON(res)
		}
		done("Backup written to %s", res.Path)
		if res.Key != "" {
			done("Uploaded as %s", res.Key)
		}
		return nil
	})
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	req := app.BackupImportRequest{Key: backupKey}
	if len(args) == 1 {
		req.Path = args[0]
	}
	if (req.Path == "") == (req.Key == "") {
		return fmt.Errorf("give either a backup path or --key")
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.ImportBackup(ctx, req); err != nil {
			return fmt.Errorf("backup import: %w", err)
		}
		done("Journal restored")
		if st := a.Status(); st.DB.Encrypted && !st.DB.Unlocked {
			fmt.Println("  Run 'ftjournal unlock' with the backup's passphrase")
		}
		return nil
	})
}

func runBackupListRemote(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		objs, err := a.RemoteBackups(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(objs)
		}
		if len(objs) == 0 {
			fmt.Println("No remote backups")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODIFIED\tSIZE\tKEY")
		for _, o := range objs {
			fmt.Fprintf(w, "%s\t%d\t%s\n", o.LastModified.Local().Format("2006-01-02 15:04"), o.Size, o.Key)
		}
		return w.Flush()
	})
}
