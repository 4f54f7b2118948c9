package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pindamonhangaba/vscode-database-client/internal/config"
	"github.com/pindamonhangaba/vscode-database-client/internal/scriptfs"
	"github.com/pindamonhangaba/vscode-database-client/internal/tree"
)

var lsCmd = &cobra.Command{
	Use:   "ls [subdir]",
	Short: "List the scripts tree in presentation order",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mgr, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg := mgr.Current()

		tr, err := tree.New(tree.Config{Root: cfg.ScriptsRoot, Recursive: false})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer tr.Close()

		var parent *scriptfs.Entry
		if len(args) == 1 {
			path := filepath.Join(tr.Root(), args[0])
			st, err := scriptfs.StatPath(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			parent = &scriptfs.Entry{Name: filepath.Base(path), Path: path, Type: st.Type}
		}

		entries, err := tr.Children(parent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, e := range entries {
			item := tr.Item(e)
			marker := " "
			if e.IsDir() {
				marker = "/"
			}
			fmt.Printf("%-9s %s%s\n", item.Context, e.Name, marker)
		}
	},
}
