package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"costtracker/internal/log"
	"costtracker/internal/storage"
)

func newMigrateCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
			version, err := storage.RunMigrations(*dbPath)
			if err != nil {
				return err
			}
			cliLogger(cmd).Debug("Migrations applied",
				log.FieldOperation, log.OpMigrate,
				"path", *dbPath,
				"version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}
}
