package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"libris/internal/app"
	"libris/internal/export"
)

var (
	pagesDocumentID string
	pagesFormat     string
	pagesOut        string
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Print or export the page manifest of a document",
	RunE:  runPages,
}

func init() {
	pagesCmd.Flags().StringVar(&pagesDocumentID, "document-id", "", "document UUID (required)")
	pagesCmd.Flags().StringVar(&pagesFormat, "format", "json", "output format: json, csv or xlsx")
	pagesCmd.Flags().StringVarP(&pagesOut, "out", "o", "", "write to a file instead of stdout")
	_ = pagesCmd.MarkFlagRequired("document-id")
}

func runPages(cmd *cobra.Command, _ []string) error {
	documentID, err := parseDocumentID(pagesDocumentID)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	pages, err := a.Ingest.ListPages(cmd.Context(), documentID)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if pagesOut != "" {
		f, err := os.Create(pagesOut)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if pagesFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pages)
	}

	format, err := export.ParseFormat(pagesFormat)
	if err != nil {
		return err
	}
	return export.Write(out, format, pages)
}
