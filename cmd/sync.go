package cmd

import (
	"context"
	"fmt"
	"gdsync/internal/conflict"
	"gdsync/internal/engine"
	"gdsync/internal/logger"
	"gdsync/internal/progress"
	"gdsync/internal/remote"
	"gdsync/internal/repository"
	"gdsync/internal/server"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncYes    bool
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [dir]",
	Short: "Download new and changed files once",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	root, err := targetDir(args)
	if err != nil {
		return err
	}

	ref, err := engine.ReadMarker(root, cfg.MarkerFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := remote.Connect(ctx, ref)
	if err != nil {
		return withAuthHint(err, ref.Provider)
	}

	eng := engine.New(store, cfg, engine.Deps{
		Prompter: conflict.NewPrompter(root),
		Renderer: progress.NewTerminalRenderer(os.Stdout, root),
		Console:  progress.NewConsole(),
		History:  repository.NewHistoryRepository(),
	})

	stopServer := startStatusServer(eng)
	defer stopServer()

	report, err := eng.Run(ctx, root, ref.ID, engine.RunOptions{ApplyAll: syncYes, DryRun: syncDryRun})
	if err == nil && report.Failed() > 0 {
		fmt.Printf("See 'gdsync history --run %s' for the failed transfers\n", report.RunID)
	}

	return err
}

// startStatusServer serves run status when status_port is set and returns
// its shutdown func.
func startStatusServer(status server.StatusSource) func() {
	if cfg.StatusPort <= 0 {
		return func() {}
	}

	srv := server.New(status, repository.NewHistoryRepository(), cfg.StatusPort)
	srv.Start()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			logger.Log.Warn("failed to stop status server", zap.Error(err))
		}
	}
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "Overwrite every out-of-date file without asking")
	cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "List new and out-of-date files without downloading")
}

func init() {
	addSyncFlags(syncCmd)
	rootCmd.AddCommand(syncCmd)
}
