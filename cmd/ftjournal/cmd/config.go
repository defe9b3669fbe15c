package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and check the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file",
	Long: `Check a configuration file. The format follows the extension: .json,
.yaml, .yml or .toml.

Example:
  ftjournal config validate -f ./ftjournal.toml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var validateFile string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPathCmd)

	configValidateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "file to check (default is the active config)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	// Never echo credentials.
	if cfg.Backup.S3.SecretKey != "" {
		cfg.Backup.S3.SecretKey = "********"
	}
	return printJSON(cfg)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := validateFile
	if path == "" {
		var err error
		if path, err = configPath(); err != nil {
			return err
		}
	}
	if _, err := config.LoadFromFile(path); err != nil {
		return err
	}
	done("Config is valid: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
