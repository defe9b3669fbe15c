package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ftjournal/store"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the ftjournal CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ftjournal version %s\n", version)
		fmt.Printf("schema version %d\n", store.SchemaVersion)
		fmt.Printf("sqlcipher: %s\n", check(store.CipherSupported()))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
