// cmd/init.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markb/glogin/internal/db"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new glogin database",
	Long:  `Creates a new SQLite database with the account, link, session and pending request tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if _, err := os.Stat(cfg.DBPath); err == nil {
			return fmt.Errorf("database already exists at %s", cfg.DBPath)
		}

		database, err := db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer database.Close()

		if err := database.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		fmt.Printf("Initialized database at %s\n", cfg.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
