package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markb/glogin/internal/config"
	"github.com/markb/glogin/internal/db"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:     "glogin",
	Short:   "Login with Google service",
	Long:    `A single-binary service that signs users in with Google and links them to local accounts stored in SQLite.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("glogin version {{.Version}}\n")
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides GLOGIN_DB)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
		cfg.DBPath = f.Value.String()
	}
	return cfg, nil
}

// openDatabase opens an existing database and brings its schema up to date.
func openDatabase(path string) (*db.DB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s. Run 'glogin init' first", path)
	}

	database, err := db.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, nil
}
