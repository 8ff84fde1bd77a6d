package watcher

import (
	"context"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"time"

	"go.uber.org/zap"
)

type SyncFunc func(ctx context.Context) error

// Loop runs a sync at start, every interval, and on local changes. Events
// stamped before the last sync finished are dropped, which covers the files
// the sync itself wrote.
type Loop struct {
	sync     SyncFunc
	interval time.Duration
	events   <-chan model.FileEvent

	lastFinished time.Time
	runs         int
}

func NewLoop(sync SyncFunc, interval time.Duration, events <-chan model.FileEvent) *Loop {
	return &Loop{sync: sync, interval: interval, events: events}
}

// Run blocks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.runOnce(ctx, "start")

	var tick <-chan time.Time
	if l.interval > 0 {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	events := l.events
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-tick:
			l.runOnce(ctx, "interval")

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Timestamp.Before(l.lastFinished) {
				continue
			}

			logger.Log.Debug("local change", zap.String("type", string(ev.Type)), zap.String("path", ev.Path))
			l.runOnce(ctx, "change")
		}
	}
}

// Runs reports how many syncs were started.
func (l *Loop) Runs() int {
	return l.runs
}

func (l *Loop) runOnce(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}

	l.runs++
	logger.Log.Info("sync triggered", zap.String("reason", reason))

	if err := l.sync(ctx); err != nil && ctx.Err() == nil {
		logger.Log.Error("sync failed", zap.String("reason", reason), zap.Error(err))
	}

	l.lastFinished = time.Now()
}
