package cmd

import (
	"context"
	"errors"
	"fmt"
	"gdsync/internal/auth"
	"gdsync/internal/config"
	"gdsync/internal/db"
	"gdsync/internal/logger"
	"gdsync/internal/progress"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

const exitInterrupted = 130

var (
	cfg   *config.Config
	debug bool
)

// commands that read or write transfer history
var historyCmds = map[string]bool{
	"gdsync": true, "sync": true, "watch": true, "history": true,
}

var rootCmd = &cobra.Command{
	Use:   "gdsync [dir]",
	Short: "Mirror a Google Drive or Dropbox folder into a local directory",
	Long: `gdsync mirrors a remote folder into a local directory. The directory must
contain a marker file (see 'gdsync init') naming the remote folder. Running
gdsync without a subcommand is the same as 'gdsync sync'.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		dir, err := config.Dir()
		if err != nil {
			return err
		}
		auth.UseTokenStore(auth.NewTokenStore(cfg.TokenStore, dir))

		if historyCmds[cmd.Name()] {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = db.Close()
		logger.Sync()
	},
	RunE: runSync,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if code := exitCode(err); code != 0 {
		console := progress.NewConsole()
		if code == exitInterrupted {
			console.Warn("Interrupted")
		} else {
			console.Error("%v", err)
		}
		logger.Sync()
		os.Exit(code)
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return 1
	}
}

// targetDir resolves the mirror directory argument, defaulting to the
// working directory.
func targetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid directory %q: %w", dir, err)
	}

	return abs, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log to stderr at debug level")
	addSyncFlags(rootCmd)
}
