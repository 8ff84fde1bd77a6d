package cmd

import (
	"context"
	"gdsync/internal/engine"
	"gdsync/internal/logger"
	"gdsync/internal/pipeline"
	"gdsync/internal/progress"
	"gdsync/internal/remote"
	"gdsync/internal/repository"
	"gdsync/internal/watcher"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	watchBuffer   = 100
	debounceDelay = 2 * time.Second
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory mirrored until stopped",
	Long: `Syncs on start, every watch_interval, and whenever files in the mirror are
changed or removed locally. Out-of-date files are always overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
			Renderer: progress.NewTerminalRenderer(os.Stdout, root),
			Console:  progress.NewConsole(),
			History:  repository.NewHistoryRepository(),
		})

		w, err := watcher.New(watchBuffer)
		if err != nil {
			return err
		}
		if err := w.Watch(root); err != nil {
			return err
		}
		defer w.Stop()

		filtered := pipeline.Filter(w.Events(), cfg.IgnoreList)
		changed := pipeline.NewChecksumFilter(store.Hasher()).Run(filtered)
		events := pipeline.Debounce(changed, debounceDelay)

		stopServer := startStatusServer(eng)
		defer stopServer()

		logger.Log.Info("watch started",
			zap.String("root", root),
			zap.String("remote", ref.String()),
			zap.Duration("interval", cfg.WatchInterval))

		loop := watcher.NewLoop(func(ctx context.Context) error {
			_, err := eng.Run(ctx, root, ref.ID, engine.RunOptions{ApplyAll: true})
			return err
		}, cfg.WatchInterval, events)

		if err := loop.Run(ctx); err != nil {
			return err
		}

		logger.Log.Info("watch stopped", zap.Int("runs", loop.Runs()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
