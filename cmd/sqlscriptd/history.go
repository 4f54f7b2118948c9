package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pindamonhangaba/vscode-database-client/internal/config"
	"github.com/pindamonhangaba/vscode-database-client/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent statement runs",
	Run: func(cmd *cobra.Command, args []string) {
		mgr, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg := mgr.Current()

		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		runs, err := store.Recent(context.Background(), historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, r := range runs {
			status := fmt.Sprintf("%d rows", r.Rows)
			if r.Err != "" {
				status = "error: " + r.Err
			}
			fmt.Printf("%s  %-12s %-8s %s\n",
				r.StartedAt.Local().Format(time.DateTime),
				r.Connection, status, r.Statement)
		}
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to show")
}
