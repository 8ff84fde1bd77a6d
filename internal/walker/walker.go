package walker

import (
	"context"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"gdsync/internal/pipeline"
	"gdsync/internal/remote"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type Walker struct {
	store      remote.Store
	ignoreList []string
}

func New(store remote.Store, ignoreList []string) *Walker {
	return &Walker{store: store, ignoreList: ignoreList}
}

// Walk enumerates the tree under containerID, creating a local directory for
// every remote container below localPath. Each container is listed at most once.
func (w *Walker) Walk(ctx context.Context, containerID, localPath string) ([]model.RemoteEntry, error) {
	visited := map[string]struct{}{containerID: {}}

	entries := w.walk(ctx, containerID, localPath, visited)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (w *Walker) walk(ctx context.Context, containerID, localPath string, visited map[string]struct{}) []model.RemoteEntry {
	if ctx.Err() != nil {
		return nil
	}

	children, err := w.store.ListChildren(ctx, containerID)
	if err != nil {
		logger.Log.Warn("failed to list remote folder",
			zap.String("id", containerID),
			zap.String("path", localPath),
			zap.Error(err))
		return nil
	}

	var result []model.RemoteEntry
	for _, child := range children {
		if _, seen := visited[child.ID]; seen {
			continue
		}
		if pipeline.ShouldIgnore(child.Name, w.ignoreList) {
			logger.Log.Debug("ignoring remote entry", zap.String("name", child.Name))
			continue
		}

		visited[child.ID] = struct{}{}
		child.Path = localPath
		result = append(result, child)

		if !child.IsContainer() {
			continue
		}

		dir := child.LocalPath()
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Log.Warn("failed to create local folder",
				zap.String("path", dir),
				zap.Error(err))
			continue
		}

		result = append(result, w.walk(ctx, child.ID, filepath.Join(localPath, child.Name), visited)...)
	}

	return result
}
