package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"libris/internal/service"
)

var (
	tokenUserID string
	tokenRole   string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID := uuid.New()
		if tokenUserID != "" {
			parsed, err := uuid.Parse(tokenUserID)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			userID = parsed
		}

		token, err := service.NewAuthService(cfg.JWT).IssueToken(userID, tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "subject user UUID (random when empty)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "editor", "role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
