package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepSessionsCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-sessions",
		Short: "Delete expired login sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := open()
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer repo.Close()

			n, err := repo.DeleteExpiredSessions(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("sweeping sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired sessions\n", n)
			return nil
		},
	}
}
