package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"libris/internal/app"
)

var resetDocumentID string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the stored ingestion progress of a document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		documentID, err := parseDocumentID(resetDocumentID)
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := a.Ingest.Reset(cmd.Context(), documentID); err != nil {
			return fmt.Errorf("reset %s: %w", documentID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "progress reset for document %s\n", documentID)
		return nil
	},
}

func init() {
	resetCmd.Flags().StringVar(&resetDocumentID, "document-id", "", "document UUID (required)")
	_ = resetCmd.MarkFlagRequired("document-id")
}
