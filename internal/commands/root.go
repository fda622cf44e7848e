// Package commands implements the costtracker-admin command line.
package commands

import (
	"github.com/spf13/cobra"

	"costtracker/internal/config"
	"costtracker/internal/log"
	"costtracker/internal/storage"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:   "costtracker-admin",
		Short: "Administrative tasks for the cost tracker database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.Load().SQLiteDBPath,
		"path to the SQLite database (defaults to SQLITE_DB_PATH)")

	open := func() (*storage.SQLiteRepository, error) {
		return storage.NewSQLiteRepository(dbPath)
	}

	rootCmd.AddCommand(
		newAddUserCommand(open),
		newMigrateCommand(&dbPath),
		newSweepSessionsCommand(open),
	)

	return rootCmd
}

// opener opens the repository selected by --db.
type opener func() (*storage.SQLiteRepository, error)

func cliLogger(cmd *cobra.Command) *log.Logger {
	return log.New(log.Config{
		Level:     config.Load().SlogLevel(),
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
}
