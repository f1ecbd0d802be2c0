package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inboxd/inboxd/internal/auth"
	"github.com/inboxd/inboxd/internal/config"
)

func newTokenCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API token",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
			if err != nil {
				return fmt.Errorf("parse jwt_expires_in: %w", err)
			}
			signed, expiresAt, err := auth.GenerateToken(subject, cfg.Auth.JWTSecret, expiresIn)
			if err != nil {
				return err
			}
			fmt.Println(signed)
			fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	return cmd
}
