package progress

import (
	"context"
	"gdsync/internal/model"
	"time"
)

// Frame is what a renderer draws for one tick.
type Frame struct {
	Items []Item
}

// Counts tallies items per state.
func (f Frame) Counts() map[model.TransferState]int {
	counts := make(map[model.TransferState]int)
	for _, it := range f.Items {
		counts[it.State]++
	}

	return counts
}

type Renderer interface {
	Render(f Frame)
	Final(f Frame)
}

// Reporter polls a board and hands frames to a renderer. It never writes
// to the board.
type Reporter struct {
	board    *Board
	renderer Renderer
	interval time.Duration
}

func NewReporter(board *Board, renderer Renderer, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}

	return &Reporter{board: board, renderer: renderer, interval: interval}
}

// Run blocks until done is closed or ctx ends, then renders a final frame.
// Nothing is drawn before the first transfer starts. keys fixes the order
// and lists transfers that have not started yet.
func (r *Reporter) Run(ctx context.Context, keys []string, done <-chan struct{}) {
	select {
	case <-r.board.Started():
	case <-done:
		r.renderer.Final(r.frame(keys))
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.renderer.Render(r.frame(keys))

	for {
		select {
		case <-done:
			r.renderer.Final(r.frame(keys))
			return
		case <-ctx.Done():
			r.renderer.Final(r.frame(keys))
			return
		case <-ticker.C:
			r.renderer.Render(r.frame(keys))
		}
	}
}

func (r *Reporter) frame(keys []string) Frame {
	snapshot := r.board.Snapshot()
	byKey := make(map[string]Item, len(snapshot))
	for _, it := range snapshot {
		byKey[it.Key] = it
	}

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		it, ok := byKey[key]
		if !ok {
			it = Item{Key: key, ProgressRecord: model.ProgressRecord{State: model.TransferPending}}
		}
		items = append(items, it)
	}

	return Frame{Items: items}
}
