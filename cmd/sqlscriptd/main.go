// Command sqlscriptd is the native backend of the database-client editor
// extension: it serves the scripts folder as a virtual filesystem, pushes
// change events to the editor, and answers code-lens and run requests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sqlscriptd",
	Short: "Backend daemon for the database-client editor extension",
	Long: `sqlscriptd serves a scripts directory to the editor as a browsable
filesystem tree, watches it for external changes, detects runnable SQL
statement blocks for code lenses, and records run history.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
