package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"costtracker/internal/core"
	"costtracker/internal/services"
)

func newAddUserCommand(open opener) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				var err error
				password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			repo, err := open()
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer repo.Close()

			auth, err := services.NewAuthService(repo, services.DefaultBcryptCost, cliLogger(cmd))
			if err != nil {
				return err
			}

			name := strings.TrimSpace(username)
			if err := auth.Register(cmd.Context(), name, password); err != nil {
				if errors.Is(err, core.ErrDuplicateUsername) {
					return fmt.Errorf("user %s already exists", name)
				}
				return fmt.Errorf("creating user: %w", err)
			}

			user, err := repo.FindUserByUsername(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("reading back user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s created successfully with ID %d\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "username (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted for when omitted)")

	return cmd
}

// readPassword reads without echo from a terminal, or one line otherwise.
func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
