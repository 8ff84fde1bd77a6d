package engine

import (
	"bytes"
	"context"
	"gdsync/internal/config"
	"gdsync/internal/conflict"
	"gdsync/internal/model"
	"gdsync/internal/progress"
	"gdsync/internal/remote/remotetest"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memHistory struct {
	rows []model.History
}

func (m *memHistory) SaveAll(h []model.History) error {
	m.rows = append(m.rows, h...)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default
	cfg.ChunkSize = 3
	cfg.MaxRetries = 1
	return &cfg
}

func fixture(t *testing.T) (*remotetest.Store, string) {
	t.Helper()

	store := remotetest.New()
	store.AddFile("root", "f1", "readme.md", []byte("# readme"))
	store.AddFolder("root", "d1", "docs")
	store.AddFile("d1", "f2", "guide.txt", []byte("guide v1"))
	store.AddFile("root", "f3", ".id", []byte("root"))

	return store, t.TempDir()
}

func newEngine(store *remotetest.Store, p conflict.Prompter, h HistoryStore) (*Engine, *bytes.Buffer) {
	var out bytes.Buffer
	e := New(store, testConfig(), Deps{
		Prompter: p,
		Console:  &progress.Console{Out: &out},
		History:  h,
	})
	return e, &out
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunDownloadsNewFilesThenIsUpToDate(t *testing.T) {
	store, root := fixture(t)
	hist := &memHistory{}
	e, out := newEngine(store, nil, hist)

	report, err := e.Run(context.Background(), root, "root", RunOptions{})
	require.NoError(t, err)

	assert.Len(t, report.Diff.New, 2)
	assert.Empty(t, report.Diff.Changed)
	assert.Equal(t, 2, report.Downloaded())
	assert.Equal(t, "# readme", read(t, filepath.Join(root, "readme.md")))
	assert.Equal(t, "guide v1", read(t, filepath.Join(root, "docs", "guide.txt")))
	assert.NoFileExists(t, filepath.Join(root, ".id"))

	require.Len(t, hist.rows, 2)
	assert.Equal(t, report.RunID, hist.rows[0].RunID)
	assert.Equal(t, model.BatchNew, hist.rows[0].Batch)
	assert.Equal(t, model.StatusSuccess, hist.rows[0].Status)

	assert.Equal(t, PhaseDone, e.Status().Phase)
	assert.Equal(t, 2, e.Status().Downloaded)
	assert.Contains(t, out.String(), "./docs/guide.txt")

	report, err = e.Run(context.Background(), root, "root", RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Diff.New)
	assert.Empty(t, report.Diff.Changed)
	assert.Contains(t, out.String(), "Up to date")
}

func TestRunResolvesChangedFiles(t *testing.T) {
	store, root := fixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("local edit"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "guide.txt"), []byte("mine"), 0644))

	var asked []string
	p := conflict.PrompterFunc(func(_ context.Context, entry model.RemoteEntry) (conflict.Choice, error) {
		asked = append(asked, entry.Name)
		if entry.Name == "readme.md" {
			return conflict.ChoiceNo, nil
		}
		return conflict.ChoiceKeepBoth, nil
	})

	hist := &memHistory{}
	e, _ := newEngine(store, p, hist)

	report, err := e.Run(context.Background(), root, "root", RunOptions{})
	require.NoError(t, err)

	assert.Len(t, report.Diff.Changed, 2)
	require.Len(t, report.Diff.Staged, 1)
	assert.ElementsMatch(t, []string{"readme.md", "guide.txt"}, asked)

	assert.Equal(t, "local edit", read(t, filepath.Join(root, "readme.md")))
	assert.Equal(t, "mine", read(t, filepath.Join(root, "docs", "guide.txt")))
	assert.Equal(t, "guide v1", read(t, filepath.Join(root, "docs", "guide.001.txt")))

	require.Len(t, hist.rows, 1)
	assert.Equal(t, model.BatchStaged, hist.rows[0].Batch)
}

func TestRunInterruptedDuringPrompt(t *testing.T) {
	store, root := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("local edit"), 0644))

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	e, _ := newEngine(store, conflict.NewLinePrompter(pr, io.Discard), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := e.Run(ctx, root, "root", RunOptions{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, PhaseFailed, e.Status().Phase)
	assert.Equal(t, "local edit", read(t, filepath.Join(root, "readme.md")))
}

func TestRunApplyAllOverwrites(t *testing.T) {
	store, root := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("stale"), 0644))

	e, _ := newEngine(store, nil, nil)

	report, err := e.Run(context.Background(), root, "root", RunOptions{ApplyAll: true})
	require.NoError(t, err)

	assert.Len(t, report.Diff.Staged, 1)
	assert.Equal(t, "# readme", read(t, filepath.Join(root, "readme.md")))
}

func TestRunChangedWithoutPrompterFails(t *testing.T) {
	store, root := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("stale"), 0644))

	e, _ := newEngine(store, nil, nil)

	_, err := e.Run(context.Background(), root, "root", RunOptions{})
	assert.ErrorIs(t, err, errNoPrompter)
	assert.Equal(t, PhaseFailed, e.Status().Phase)
}

func TestRunDryRunDownloadsNothing(t *testing.T) {
	store, root := fixture(t)
	e, out := newEngine(store, nil, nil)

	report, err := e.Run(context.Background(), root, "root", RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Len(t, report.Diff.New, 2)
	assert.NoFileExists(t, filepath.Join(root, "readme.md"))
	assert.Contains(t, out.String(), "Dry run")
}

func TestRunReportsFailedTransfers(t *testing.T) {
	store, root := fixture(t)
	store.FailFetches("f1", 10)

	hist := &memHistory{}
	e, out := newEngine(store, nil, hist)

	report, err := e.Run(context.Background(), root, "root", RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Downloaded())
	assert.Contains(t, out.String(), "1 failed")

	var failed int
	for _, h := range hist.rows {
		if h.Status == model.StatusFailed {
			failed++
			assert.NotEmpty(t, h.ErrMsg)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRunCancelled(t *testing.T) {
	store, root := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := newEngine(store, nil, nil)

	_, err := e.Run(ctx, root, "root", RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressBeforeAnyRun(t *testing.T) {
	e, _ := newEngine(remotetest.New(), nil, nil)
	assert.Empty(t, e.Progress())
	assert.Equal(t, PhaseIdle, e.Status().Phase)
}
