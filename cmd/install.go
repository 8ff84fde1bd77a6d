package cmd

import (
	"fmt"
	"gdsync/internal/autostart"
	"gdsync/internal/engine"
	"os"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [dir]",
	Short: "Run 'gdsync watch' for a directory at login",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := targetDir(args)
		if err != nil {
			return err
		}

		if _, err := engine.ReadMarker(root, cfg.MarkerFile); err != nil {
			return err
		}

		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		if err := autostart.New().Install(execPath, root); err != nil {
			return err
		}

		fmt.Printf("gdsync watch registered for autostart on %s\n", root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
