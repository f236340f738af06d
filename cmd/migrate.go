package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warenvoyage/apiserver/config"
	"github.com/warenvoyage/apiserver/internal/db"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(db.Up)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(db.Down)
	},
}

func runMigrations(direction db.Direction) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return db.Migrate(cfg.Database, migrationsDir, direction)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.PersistentFlags().StringVar(&migrationsDir, "dir", db.DefaultMigrationsDir, "migrations directory")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
