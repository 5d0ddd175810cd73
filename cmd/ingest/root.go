package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"libris/internal/config"
	"libris/internal/logger"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "ingest",
	Short:        "Render PDF documents into page images and manage their manifests",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		// Console output keeps log lines readable next to the progress bar.
		loaded.Log.Format = "console"
		logger.Setup(loaded.Log, "libris-ingest", os.Stderr)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.AddCommand(runCmd, pagesCmd, resetCmd, tokenCmd)
}

func parseDocumentID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}
