package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/app"
	"github.com/rustyeddy/ftjournal/config"
	"github.com/rustyeddy/ftjournal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ftjournal",
	Short: "A local, optionally encrypted trading journal",
	Long: `ftjournal keeps a trading journal in a single SQLite file.

It provides tools for:
  - Recording trades with fee-aware net and gross PnL
  - A per-trade rule checklist
  - Month and day views bucketed by your local timezone
  - Daily notes linked to trades
  - CSV import and export
  - File backups, optionally mirrored to S3

Encrypted journals use the bundled SQLCipher. Pass the passphrase with
--passphrase or FTJOURNAL_PASSPHRASE.`,
	SilenceUsage: true,
}

var (
	cfgFile    string
	dbPath     string
	logLevel   string
	passphrase string
	jsonOut    bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/ftjournal/ftjournal.json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path used by init (default is beside the config file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from config, else warn)")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "passphrase for an encrypted journal")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

func newLogger(path string) *slog.Logger {
	level := logLevel
	if level == "" {
		level = "warn"
		if cfg, err := config.LoadFromFile(path); err == nil && cfg.LogLevel != "" {
			level = cfg.LogLevel
		}
	}
	return logger.New(level, os.Stderr)
}

func secret() string {
	if passphrase != "" {
		return passphrase
	}
	return config.Passphrase()
}

// newApp builds the App without opening anything.
func newApp() (*app.App, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return app.New(app.Options{ConfigPath: path, DBPath: dbPath, Log: newLogger(path)})
}

// openApp builds the App, opens an unencrypted journal and unlocks an
// encrypted one when a passphrase is available.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	if err := a.Autoload(ctx); err != nil {
		return nil, err
	}
	st := a.Status()
	if st.DB.Configured && st.DB.Encrypted && !st.DB.Unlocked {
		if p := secret(); p != "" {
			if _, err := a.Unlock(ctx, app.UnlockRequest{Passphrase: p}); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// withApp runs f against an opened App and closes it afterwards.
func withApp(cmd *cobra.Command, f func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return f(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func check(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func done(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}
