package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"promptopt/internal/logging"
	"promptopt/internal/rag"
	"promptopt/internal/spec"
)

type indexStore interface {
	rag.DocumentStore
	Count() int
}

// openIndexStore is a test seam for the vector store behind index.
var openIndexStore = func(ctx context.Context, cfg spec.RAGConfig) (indexStore, error) {
	return openVectorStore(ctx, cfg)
}

// runIndex builds the handler for the index command.
func runIndex(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := newFlagSet(cmd, stderr)
		specPath := flags.String("spec", "", "Path to config file (default: search for .promptopt/config.yml)")
		docsDir := flags.String("docs", "", "Override rag.docs_dir")
		verbose := flags.Bool("verbose", false, "Debug logging")
		if code, ok := parseFlags(cmd, flags, args, stdout, stderr); !ok {
			return code
		}

		cfg, ok := loadConfig(*specPath, stderr)
		if !ok {
			return ExitError
		}
		if *docsDir != "" {
			cfg.RAG.DocsDir = *docsDir
		}
		if cfg.RAG.DocsDir == "" {
			fmt.Fprintln(stderr, "Index failed: rag.docs_dir is not set (use --docs)")
			return ExitUsage
		}
		if cfg.RAG.PersistDir == "" {
			fmt.Fprintln(stderr, "Index failed: rag.persist_dir is not set")
			return ExitError
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			fmt.Fprintf(stderr, "Index failed: %v\n", err)
			return ExitError
		}
		if *verbose {
			level = logging.LevelDebug
		}
		logger := logging.NewWithWriter(stderr, level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openIndexStore(ctx, cfg.RAG)
		if err != nil {
			fmt.Fprintf(stderr, "Index failed: %v\n", err)
			return ExitError
		}
		indexer := rag.NewIndexer(store, cfg.RAG.Extensions, cfg.RAG.ChunkSize, logger)
		stats, err := indexer.Index(ctx, cfg.RAG.DocsDir)
		if err != nil {
			fmt.Fprintf(stderr, "Index failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Indexed %d files into %d chunks\n", stats.Files, stats.Chunks)
		fmt.Fprintf(stdout, "Collection %s holds %d documents\n", cfg.RAG.Collection, store.Count())
		return ExitOK
	}
}
