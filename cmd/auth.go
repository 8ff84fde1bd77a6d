package cmd

import (
	"errors"
	"fmt"
	"gdsync/internal/auth"
	"gdsync/internal/remote"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth <gdrive|dropbox>",
	Short: "Sign in to Google Drive or Dropbox",
	Long: `Sign in to a remote store with read-only access and keep the token for
later runs. Google Drive needs gdrive_credentials.json and Dropbox needs
dropbox_credentials.json in ~/.gdsync. The token is written to ~/.gdsync or to
the system keyring when token_store is "keyring".

Run this again whenever a sync reports that it is not authorized.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(remote.ProviderGDrive), string(remote.ProviderDropbox)},
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok := auth.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown provider %q, want gdrive or dropbox", args[0])
		}

		if err := p.Authorize(cmd.Context()); err != nil {
			return fmt.Errorf("failed to sign in to %s: %w", p.Name(), err)
		}

		return printAuthorized(os.Stdout, p.Name())
	},
}

func printAuthorized(w io.Writer, name string) error {
	where, err := auth.TokenLocation(name)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "Signed in to %s, token saved to %s\n", name, where)
	return err
}

// withAuthHint tells the user how to recover from a missing or revoked token.
func withAuthHint(err error, provider remote.Provider) error {
	if errors.Is(err, auth.ErrNotAuthorized) {
		return fmt.Errorf("%w: run 'gdsync auth %s' to sign in again", err, provider)
	}

	return err
}

func init() {
	rootCmd.AddCommand(authCmd)
}
