package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pindamonhangaba/vscode-database-client/internal/codelens"
	"github.com/pindamonhangaba/vscode-database-client/internal/sqlscan"
)

var scanShowLenses bool

var scanCmd = &cobra.Command{
	Use:   "scan <file.sql>",
	Short: "Show the statement blocks of a SQL file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		text := string(data)

		if scanShowLenses {
			for _, l := range codelens.NewProvider().Lenses(text) {
				fmt.Printf("%d:%d-%d:%d  [%s] %s\n",
					l.Range.StartLine, l.Range.StartChar,
					l.Range.EndLine, l.Range.EndChar,
					l.Kind, l.Title)
			}
			return
		}

		for _, b := range sqlscan.Scan(text) {
			fmt.Printf("block %d (%d:%d-%d:%d) %s\n",
				b.Index, b.StartLine, b.StartChar, b.EndLine, b.EndChar,
				b.LeadingKeyword())
		}
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanShowLenses, "lenses", false, "show code lenses instead of blocks")
}
