package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inboxd/inboxd/internal/config"
	"github.com/inboxd/inboxd/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := db.Migrate(cfg.Postgres); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
