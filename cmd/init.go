package cmd

import (
	"errors"
	"fmt"
	"gdsync/internal/engine"
	"gdsync/internal/progress"
	"gdsync/internal/remote"
	"os"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init <remote> [dir]",
	Short: "Bind a directory to a remote folder",
	Long: `Writes the marker file that names the remote folder to mirror. <remote> is a
Google Drive folder id, "gdrive:<id>" or "dropbox:<path-or-id>".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := remote.ParseRef(args[0])
		if err != nil {
			return err
		}

		root, err := targetDir(args[1:])
		if err != nil {
			return err
		}

		if err := os.MkdirAll(root, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", root, err)
		}

		existing, err := engine.ReadMarker(root, cfg.MarkerFile)
		switch {
		case err == nil && !initForce:
			return fmt.Errorf("%s is already bound to %s, use --force to replace", root, existing)
		case err != nil && !errors.Is(err, engine.ErrNoMarker) && !initForce:
			return err
		}

		if err := engine.WriteMarker(root, cfg.MarkerFile, ref); err != nil {
			return err
		}

		progress.NewConsole().Success("%s now mirrors %s", root, ref)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Replace an existing marker")
	rootCmd.AddCommand(initCmd)
}
