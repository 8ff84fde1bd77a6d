package diff

import (
	"context"
	"errors"
	"gdsync/internal/fingerprint"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"os"

	"go.uber.org/zap"
)

type Classifier struct {
	hasher fingerprint.Hasher
}

// NewClassifier compares local files with the hash the remote store uses.
func NewClassifier(hasher fingerprint.Hasher) *Classifier {
	return &Classifier{hasher: hasher}
}

// Classify splits file entries into New and Changed. Containers and files
// whose local fingerprint matches are dropped.
func (c *Classifier) Classify(ctx context.Context, entries []model.RemoteEntry) (model.DiffResult, error) {
	var result model.DiffResult

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return model.DiffResult{}, err
		}
		if entry.IsContainer() {
			continue
		}

		path := entry.LocalPath()
		matched, err := fingerprint.Matches(path, entry.Fingerprint, c.hasher)
		switch {
		case errors.Is(err, os.ErrNotExist):
			result.New = append(result.New, entry)
		case err != nil:
			logger.Log.Warn("failed to fingerprint local file, treating as changed",
				zap.String("path", path),
				zap.Error(err))
			result.Changed = append(result.Changed, entry)
		case !matched:
			result.Changed = append(result.Changed, entry)
		}
	}

	return result, nil
}
