package engine

import (
	"context"
	"errors"
	"gdsync/internal/config"
	"gdsync/internal/conflict"
	"gdsync/internal/diff"
	"gdsync/internal/downloader"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"gdsync/internal/progress"
	"gdsync/internal/remote"
	"gdsync/internal/util"
	"gdsync/internal/walker"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNoPrompter = errors.New("out-of-date files need a decision but no prompter is set")

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseWalking     Phase = "walking"
	PhaseClassifying Phase = "classifying"
	PhaseDownloading Phase = "downloading"
	PhaseResolving   Phase = "resolving"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Status describes the current or last run.
type Status struct {
	RunID      string      `json:"run_id,omitempty"`
	Root       string      `json:"root,omitempty"`
	Phase      Phase       `json:"phase"`
	Batch      model.Batch `json:"batch,omitempty"`
	New        int         `json:"new"`
	Changed    int         `json:"changed"`
	Staged     int         `json:"staged"`
	Downloaded int         `json:"downloaded"`
	Failed     int         `json:"failed"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

type HistoryStore interface {
	SaveAll(histories []model.History) error
}

// Deps are the collaborators of a run. Nil Console prints to stdout; nil
// Renderer and History disable progress output and the audit trail.
type Deps struct {
	Prompter conflict.Prompter
	Renderer progress.Renderer
	Console  *progress.Console
	History  HistoryStore
}

type RunOptions struct {
	ApplyAll bool
	DryRun   bool
}

// Report is the outcome of one run.
type Report struct {
	RunID  string
	Diff   model.DiffResult
	New    downloader.Summary
	Staged downloader.Summary
}

func (r Report) Failed() int {
	return r.New.Failed() + r.Staged.Failed()
}

func (r Report) Downloaded() int {
	return r.New.Succeeded() + r.Staged.Succeeded()
}

type Engine struct {
	store      remote.Store
	cfg        *config.Config
	deps       Deps
	downloader *downloader.Downloader

	mu     sync.Mutex
	status Status
}

func New(store remote.Store, cfg *config.Config, deps Deps) *Engine {
	if deps.Console == nil {
		deps.Console = progress.NewConsole()
	}

	return &Engine{
		store: store,
		cfg:   cfg,
		deps:  deps,
		downloader: downloader.New(store, downloader.Options{
			ChunkSize:      cfg.ChunkSize,
			MaxRetries:     cfg.MaxRetries,
			Concurrency:    cfg.Concurrency,
			ReportInterval: cfg.ReportInterval,
		}, deps.Renderer),
		status: Status{Phase: PhaseIdle},
	}
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

// Progress snapshots the transfers of the current or last batch.
func (e *Engine) Progress() []progress.Item {
	board := e.downloader.Board()
	if board == nil {
		return []progress.Item{}
	}

	return board.Snapshot()
}

func (e *Engine) update(fn func(s *Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.status)
}

func (e *Engine) setPhase(p Phase) {
	e.update(func(s *Status) { s.Phase = p })
}

// Run mirrors containerID into root: walk, classify, fetch new files, resolve
// out-of-date files, fetch the staged ones.
func (e *Engine) Run(ctx context.Context, root, containerID string, opts RunOptions) (report Report, err error) {
	report.RunID = uuid.NewString()
	console := e.deps.Console

	e.update(func(s *Status) {
		*s = Status{RunID: report.RunID, Root: root, Phase: PhaseWalking, StartedAt: new(time.Now())}
	})
	defer func() {
		e.update(func(s *Status) {
			s.FinishedAt = new(time.Now())
			if err != nil {
				s.Phase = PhaseFailed
			} else {
				s.Phase = PhaseDone
			}
		})
	}()

	logger.Log.Info("sync started",
		zap.String("run_id", report.RunID),
		zap.String("provider", string(e.store.Name())),
		zap.String("root", root),
		zap.String("container", containerID))

	console.Info("Fetching remote tree...")
	entries, err := walker.New(e.store, e.cfg.IgnoreList).Walk(ctx, containerID, root)
	if err != nil {
		return report, err
	}

	e.setPhase(PhaseClassifying)
	report.Diff, err = diff.NewClassifier(e.store.Hasher()).Classify(ctx, entries)
	if err != nil {
		return report, err
	}

	e.update(func(s *Status) {
		s.New = len(report.Diff.New)
		s.Changed = len(report.Diff.Changed)
	})

	if len(report.Diff.New) == 0 && len(report.Diff.Changed) == 0 {
		console.Success("Up to date")
		return report, nil
	}

	e.list(root, report.Diff)

	if opts.DryRun {
		console.Info("Dry run: %d new, %d out of date, nothing downloaded", len(report.Diff.New), len(report.Diff.Changed))
		return report, nil
	}

	if len(report.Diff.New) > 0 {
		console.Info("Downloading %d new files", len(report.Diff.New))
		report.New = e.download(ctx, report.RunID, model.BatchNew, report.Diff.New)
		e.summarize(model.BatchNew, report.New)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if len(report.Diff.Changed) > 0 {
		e.setPhase(PhaseResolving)

		prompter := e.deps.Prompter
		if prompter == nil && !opts.ApplyAll {
			return report, errNoPrompter
		}

		report.Diff.Staged, err = conflict.NewResolver(prompter, opts.ApplyAll).Resolve(ctx, report.Diff.Changed)
		if err != nil {
			return report, err
		}
		e.update(func(s *Status) { s.Staged = len(report.Diff.Staged) })

		if len(report.Diff.Staged) > 0 {
			console.Info("Downloading %d updated files", len(report.Diff.Staged))
			report.Staged = e.download(ctx, report.RunID, model.BatchStaged, report.Diff.Staged)
			e.summarize(model.BatchStaged, report.Staged)
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	logger.Log.Info("sync finished",
		zap.String("run_id", report.RunID),
		zap.Int("downloaded", report.Downloaded()),
		zap.Int("failed", report.Failed()))

	if report.Failed() == 0 {
		console.Success("Sync complete")
	} else {
		console.Warn("Sync finished with %d failed files", report.Failed())
	}

	return report, nil
}

func (e *Engine) list(root string, d model.DiffResult) {
	console := e.deps.Console

	if len(d.New) > 0 {
		console.Info("%d new files:", len(d.New))
		for _, entry := range d.New {
			console.New(util.DisplayPath(root, entry.LocalPath()))
		}
	}

	if len(d.Changed) > 0 {
		console.Warn("%d out-of-date files:", len(d.Changed))
		for _, entry := range d.Changed {
			console.Changed(util.DisplayPath(root, entry.LocalPath()))
		}
	}
}

func (e *Engine) download(ctx context.Context, runID string, batch model.Batch, entries []model.RemoteEntry) downloader.Summary {
	e.update(func(s *Status) {
		s.Phase = PhaseDownloading
		s.Batch = batch
	})

	summary := e.downloader.DownloadAll(ctx, entries)

	e.update(func(s *Status) {
		s.Downloaded += summary.Succeeded()
		s.Failed += summary.Failed()
	})

	e.record(runID, batch, summary)
	return summary
}

func (e *Engine) summarize(batch model.Batch, summary downloader.Summary) {
	console := e.deps.Console

	if summary.Failed() == 0 {
		console.Success("Downloaded %d %s files (%s)", summary.Succeeded(), batch, humanize.Bytes(uint64(summary.Bytes())))
		return
	}

	console.Warn("Downloaded %d %s files (%s), %d failed", summary.Succeeded(), batch,
		humanize.Bytes(uint64(summary.Bytes())), summary.Failed())
}

func (e *Engine) record(runID string, batch model.Batch, summary downloader.Summary) {
	if e.deps.History == nil || len(summary.Results) == 0 {
		return
	}

	now := time.Now()
	rows := make([]model.History, 0, len(summary.Results))
	for _, r := range summary.Results {
		h := model.History{
			RunID:     runID,
			Provider:  string(e.store.Name()),
			RemoteID:  r.Entry.ID,
			LocalPath: r.Target,
			Batch:     batch,
			Status:    model.StatusSuccess,
			Bytes:     r.Bytes,
			SyncedAt:  now,
		}
		if r.Err != nil {
			h.Status = model.StatusFailed
			h.ErrMsg = r.Err.Error()
		}
		rows = append(rows, h)
	}

	if err := e.deps.History.SaveAll(rows); err != nil {
		logger.Log.Warn("failed to record history", zap.String("run_id", runID), zap.Error(err))
	}
}
