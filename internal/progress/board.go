package progress

import (
	"gdsync/internal/model"
	"sync"
)

// Item is a snapshot of one record.
type Item struct {
	Key string `json:"key"`
	model.ProgressRecord
}

// Board holds one progress record per transfer behind a single mutex.
type Board struct {
	mu      sync.Mutex
	order   []string
	records map[string]*model.ProgressRecord

	started   chan struct{}
	startOnce sync.Once
}

func NewBoard() *Board {
	return &Board{
		records: make(map[string]*model.ProgressRecord),
		started: make(chan struct{}),
	}
}

// Start registers key at 0%. It returns false if key is already on the board.
func (b *Board) Start(key string, total int64) bool {
	b.mu.Lock()
	if _, ok := b.records[key]; ok {
		b.mu.Unlock()
		return false
	}

	b.order = append(b.order, key)
	b.records[key] = &model.ProgressRecord{Total: total, State: model.TransferRunning}
	b.mu.Unlock()

	b.startOnce.Do(func() { close(b.started) })
	return true
}

// Update records cumulative bytes. Percent never goes down.
func (b *Board) Update(key string, received int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.records[key]
	if !ok || r.Finished() {
		return
	}

	if received > r.Bytes {
		r.Bytes = received
	}

	if p := percent(r.Bytes, r.Total); p > r.Percent {
		r.Percent = p
	}
}

func (b *Board) Complete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.records[key]; ok {
		r.Percent = 100
		r.Bytes = max(r.Bytes, r.Total)
		r.State = model.TransferComplete
	}
}

func (b *Board) Fail(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.records[key]; ok {
		r.State = model.TransferFailed
		if err != nil {
			r.Err = err.Error()
		}
	}
}

// Started is closed once the first record is registered.
func (b *Board) Started() <-chan struct{} {
	return b.started
}

func (b *Board) Get(key string) (model.ProgressRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.records[key]
	if !ok {
		return model.ProgressRecord{}, false
	}

	return *r, true
}

// Snapshot copies every record in registration order.
func (b *Board) Snapshot() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]Item, 0, len(b.order))
	for _, key := range b.order {
		items = append(items, Item{Key: key, ProgressRecord: *b.records[key]})
	}

	return items
}

func percent(done, total int64) int {
	if total <= 0 {
		return 0
	}

	p := int(done * 100 / total)
	return min(max(p, 0), 100)
}
