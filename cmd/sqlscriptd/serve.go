package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pindamonhangaba/vscode-database-client/internal/config"
	"github.com/pindamonhangaba/vscode-database-client/internal/history"
	"github.com/pindamonhangaba/vscode-database-client/internal/host"
	"github.com/pindamonhangaba/vscode-database-client/internal/runner"
	"github.com/pindamonhangaba/vscode-database-client/internal/tree"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge daemon",
	Long: `Start the WebSocket bridge the editor connects to.

The daemon:
  1. Watches the configured scripts root for changes
  2. Serves filesystem, tree, and code-lens requests on /ws
  3. Pushes change events so the editor re-renders the tree
  4. Re-roots the tree when the config file changes`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runServe() error {
	mgr, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg := mgr.Current()

	logger := newLogger(cfg)

	treeCfg := tree.Config{
		Root:      cfg.ScriptsRoot,
		Recursive: cfg.Recursive,
		Debounce:  cfg.Debounce,
		Logger:    logger,
	}
	tr, err := tree.New(treeCfg)
	if err != nil {
		return err
	}
	defer tr.Close()

	var hist *history.Store
	if cfg.HistoryPath != "" {
		hist, err = history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer hist.Close()
	}

	var run *runner.Runner
	if cfg.ConnectionsFile != "" {
		conns, err := runner.LoadConnections(cfg.ConnectionsFile)
		if err != nil {
			return err
		}
		run = runner.New(conns, hist, logger)
		logger.Printf("loaded %d connections", len(conns))
	}

	srv := host.NewServer(&host.Config{Port: cfg.ServerPort, Logger: logger}, tr, host.NewHandler(tr, run, hist, logger))
	if err := srv.Start(); err != nil {
		return err
	}

	// A root change in the config file swaps the watched directory.
	mgr.Watch(func(next config.Config) {
		if err := tr.Reconfigure(next.ScriptsRoot, next.Recursive); err != nil {
			logger.Printf("reconfigure failed: %v", err)
		}
	})

	logger.Printf("serving scripts root %s", tr.Root())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Println("shutting down")
	return srv.Stop()
}

// newLogger routes daemon logs through a rotating file when configured,
// stderr otherwise.
func newLogger(cfg config.Config) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	return log.New(out, "[sqlscriptd] ", log.LstdFlags)
}
