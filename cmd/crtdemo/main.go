// Command crtdemo is a small CLI that drives the CRT engine end to end
// over a SQLite file: feed it utterances, ask it questions, and inspect
// the contradiction ledger. Grounded in this codebase's cobra-based CLI
// bootstrap (persistent zap logger, subcommands over a shared store).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/collaborator"
	"github.com/kittclouds/crtengine/pkg/config"
	"github.com/kittclouds/crtengine/pkg/orchestrator"
	"github.com/kittclouds/crtengine/pkg/response"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const embeddingDim = 64

var (
	dbPath     string
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "crtdemo",
	Short: "Drive the contradiction-preserving memory engine from a terminal",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "crtdemo.sqlite3", "path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config override (optional)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(sayCmd, ledgerCmd, recentCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newOrchestrator() (*orchestrator.Orchestrator, store.Storer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.NewSQLiteStore(dbPath, embeddingDim)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	embedder := collaborator.NewKeywordEmbedder(embeddingDim)
	generator := &collaborator.StaticGenerator{Answer: "(no generative collaborator configured in crtdemo)"}

	o, err := orchestrator.New(db, cfg, embedder, generator, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("new orchestrator: %w", err)
	}
	return o, db, nil
}

var sayCmd = &cobra.Command{
	Use:   "say <thread_id> <utterance>",
	Short: "Run one orchestrator turn for an utterance or question",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, db, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := o.Turn(context.Background(), args[0], args[1], time.Now().Unix())
		if err != nil {
			return fmt.Errorf("turn: %w", err)
		}

		fmt.Printf("answer:        %s\n", res.Answer)
		fmt.Printf("response_type: %s\n", res.ResponseType)
		fmt.Printf("gates_passed:  %v", res.GatesPassed)
		if res.GateReason != "" {
			fmt.Printf(" (%s)", res.GateReason)
		}
		fmt.Println()
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger <thread_id>",
	Short: "List unresolved contradiction ledger entries for a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.UnresolvedForThread(args[0])
		if err != nil {
			return fmt.Errorf("unresolved for thread: %w", err)
		}
		for _, e := range entries {
			slim := response.FromContradiction(e)
			fmt.Printf("%s  %-10s  %s -> %s  drift=%.2f  %s\n",
				slim.LedgerID, slim.Topology, slim.OldMemoryID, slim.NewMemoryID, slim.Drift, slim.Summary)
		}
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent <thread_id> [limit]",
	Short: "List the most recent memories for a thread",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer db.Close()

		limit := 10
		if len(args) == 2 {
			fmt.Sscanf(args[1], "%d", &limit)
		}
		memories, err := db.RecentMemories(args[0], limit)
		if err != nil {
			return fmt.Errorf("recent memories: %w", err)
		}
		for _, m := range memories {
			fmt.Printf("%s  [%s=%s]  trust=%.2f  %q\n", m.ID, m.Slot, m.Value, m.Trust, m.Text)
		}
		return nil
	},
}
