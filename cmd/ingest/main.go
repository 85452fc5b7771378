package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/geogli/chatbot/internal/bootstrap"
	"github.com/geogli/chatbot/internal/config"
)

var (
	inputDir string
	rebuild  bool
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the retrieval index from a corpus directory",
	Long: `Walks a directory of PDF, Markdown, HTML, and text documents, extracts
and chunks their content, embeds the chunks, and persists the vector index.
Unreadable documents are skipped and reported; unchanged documents are not
re-embedded unless --rebuild is set.`,
	RunE: runIngest,
}

func init() {
	rootCmd.Flags().StringVarP(&inputDir, "input", "i", "", "corpus directory (defaults to CORPUS_ROOT)")
	rootCmd.Flags().BoolVar(&rebuild, "rebuild", false, "discard the existing index and re-embed everything")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if inputDir == "" {
		inputDir = cfg.CorpusRoot
	}

	app, err := bootstrap.NewIngestApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := app.Ingestor.Ingest(ctx, inputDir, rebuild)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("processed %d documents (%d chunks) in %s\n",
		report.DocumentsProcessed, report.ChunksProduced, report.Elapsed.Round(time.Millisecond))
	for _, skipped := range report.DocumentsSkipped {
		cmd.Printf("skipped %s: %s\n", skipped.Path, skipped.Reason)
	}
	if len(report.DocumentsSkipped) > 0 {
		cmd.Printf("%d documents skipped\n", len(report.DocumentsSkipped))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
