package pipeline

import (
	"gdsync/internal/fingerprint"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"sync"

	"go.uber.org/zap"
)

// ChecksumFilter drops write events that leave a file's content unchanged.
type ChecksumFilter struct {
	mu     sync.Mutex
	hasher fingerprint.Hasher
	cache  map[string]string
}

func NewChecksumFilter(hasher fingerprint.Hasher) *ChecksumFilter {
	return &ChecksumFilter{
		hasher: hasher,
		cache:  make(map[string]string),
	}
}

func (cf *ChecksumFilter) Run(inCh <-chan model.FileEvent) <-chan model.FileEvent {
	outCh := make(chan model.FileEvent, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if event.Type == model.EventRemove || event.Type == model.EventRename {
				cf.mu.Lock()
				delete(cf.cache, event.Path)
				cf.mu.Unlock()
				outCh <- event
				continue
			}

			sum, err := fingerprint.File(event.Path, cf.hasher)
			if err != nil {
				logger.Log.Debug("checksum failed, skipping",
					zap.String("path", event.Path),
					zap.Error(err))
				continue
			}

			cf.mu.Lock()
			prev, exists := cf.cache[event.Path]
			changed := !exists || prev != sum
			if changed {
				cf.cache[event.Path] = sum
			}
			cf.mu.Unlock()

			if changed {
				outCh <- event
			} else {
				logger.Log.Debug("checksum unchanged, skipping",
					zap.String("path", event.Path))
			}
		}
	}()

	return outCh
}
