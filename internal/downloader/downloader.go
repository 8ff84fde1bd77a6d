package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"gdsync/internal/progress"
	"gdsync/internal/remote"
	"gdsync/internal/util"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRetriesExhausted = errors.New("chunk retries exhausted")
	ErrDuplicateTarget  = errors.New("target already claimed in this batch")
)

type Options struct {
	ChunkSize      int64
	MaxRetries     int
	Concurrency    int
	ReportInterval time.Duration
}

// Result is the outcome of one transfer.
type Result struct {
	Entry  model.RemoteEntry
	Target string
	Bytes  int64
	Err    error
}

type Summary struct {
	Results []Result
}

func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (s Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

func (s Summary) Bytes() int64 {
	var total int64
	for _, r := range s.Results {
		if r.Err == nil {
			total += r.Bytes
		}
	}
	return total
}

type Downloader struct {
	store    remote.Store
	opts     Options
	renderer progress.Renderer
	current  atomic.Pointer[progress.Board]
}

func New(store remote.Store, opts Options, renderer progress.Renderer) *Downloader {
	return &Downloader{store: store, opts: opts, renderer: renderer}
}

// Board returns the board of the batch in flight, or of the last batch.
func (d *Downloader) Board() *progress.Board {
	return d.current.Load()
}

// DownloadAll fetches every entry concurrently and returns once all transfers
// have finished. Failures are per file and never stop siblings.
func (d *Downloader) DownloadAll(ctx context.Context, entries []model.RemoteEntry) Summary {
	if len(entries) == 0 {
		return Summary{}
	}

	board := progress.NewBoard()
	d.current.Store(board)

	keys := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		target := e.LocalPath()
		if _, ok := seen[target]; !ok {
			seen[target] = struct{}{}
			keys = append(keys, target)
		}
	}

	done := make(chan struct{})
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		if d.renderer != nil {
			progress.NewReporter(board, d.renderer, d.opts.ReportInterval).Run(ctx, keys, done)
		}
	}()

	results := make([]Result, len(entries))

	var g errgroup.Group
	if d.opts.Concurrency > 0 {
		g.SetLimit(d.opts.Concurrency)
	}

	for i, entry := range entries {
		g.Go(func() error {
			results[i] = d.download(ctx, board, entry)
			return nil
		})
	}

	_ = g.Wait()
	close(done)
	<-reporterDone

	return Summary{Results: results}
}

func (d *Downloader) download(ctx context.Context, board *progress.Board, entry model.RemoteEntry) Result {
	target := entry.LocalPath()
	result := Result{Entry: entry, Target: target}

	if !board.Start(target, entry.Size) {
		result.Err = fmt.Errorf("%s: %w", target, ErrDuplicateTarget)
		logger.Log.Error("download skipped",
			zap.String("id", entry.ID),
			zap.String("path", target),
			zap.Error(result.Err))
		return result
	}

	n, err := d.fetch(ctx, board, entry, target)
	if err != nil {
		board.Fail(target, err)
		result.Err = err
		logger.Log.Error("download failed",
			zap.String("id", entry.ID),
			zap.String("path", target),
			zap.Error(err))
		return result
	}

	board.Complete(target)
	result.Bytes = n
	logger.Log.Info("downloaded",
		zap.String("id", entry.ID),
		zap.String("path", target),
		zap.Int64("bytes", n))

	return result
}

func (d *Downloader) fetch(ctx context.Context, board *progress.Board, entry model.RemoteEntry, target string) (int64, error) {
	stream, err := d.store.OpenStream(ctx, entry, d.opts.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("failed to open stream: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(int(max(entry.Size, 0)))

	for {
		chunk, err := d.nextChunk(ctx, stream, entry)
		if err != nil {
			return 0, err
		}

		buf.Write(chunk.Data)
		board.Update(target, chunk.Received)

		if chunk.Done {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := int64(buf.Len())
	if err := util.AtomicWrite(target, &buf); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", target, err)
	}

	return n, nil
}

// nextChunk tries one chunk up to MaxRetries+1 times. Cancellation and a
// remote size change are not retried.
func (d *Downloader) nextChunk(ctx context.Context, stream remote.Stream, entry model.RemoteEntry) (remote.Chunk, error) {
	var lastErr error

	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return remote.Chunk{}, err
		}

		chunk, err := stream.Next(ctx)
		if err == nil {
			return chunk, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return remote.Chunk{}, err
		}
		if errors.Is(err, remote.ErrSizeChanged) {
			return remote.Chunk{}, fmt.Errorf("%s: %w", entry.Name, err)
		}

		lastErr = err
		logger.Log.Warn("chunk fetch failed",
			zap.String("id", entry.ID),
			zap.String("name", entry.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return remote.Chunk{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, d.opts.MaxRetries+1, lastErr)
}
