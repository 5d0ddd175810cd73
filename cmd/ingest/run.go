package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"libris/internal/app"
)

var (
	runFile       string
	runDocumentID string
	runQuiet      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest a PDF synchronously",
	Long: `Render every page of a PDF, upload the page images and thumbnails, and
record one page asset per page. Ctrl-C cancels at the next batch boundary.`,
	RunE: runIngest,
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "path to the PDF (required)")
	runCmd.Flags().StringVar(&runDocumentID, "document-id", "", "document UUID (required)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "hide the progress bar")
	_ = runCmd.MarkFlagRequired("file")
	_ = runCmd.MarkFlagRequired("document-id")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	documentID, err := parseDocumentID(runDocumentID)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(runFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", runFile, err)
	}
	if limit := cfg.Ingest.MaxFileSizeMB << 20; int64(len(data)) > limit {
		return fmt.Errorf("%s is %d bytes; limit is %d MB", runFile, len(data), cfg.Ingest.MaxFileSizeMB)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !runQuiet {
		updates, unsubscribe := a.Ingest.Watch(documentID)
		bar := newProgressBar(cmd.ErrOrStderr(), "rendering "+documentID.String())
		done := bar.follow(updates)
		defer func() {
			unsubscribe()
			<-done
		}()
	}

	ingestCtx, cancel := context.WithTimeout(ctx, cfg.Ingest.JobTimeout)
	defer cancel()

	pages, err := a.Ingest.Ingest(ingestCtx, documentID, data)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", documentID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d pages for document %s\n", pages, documentID)
	return nil
}
