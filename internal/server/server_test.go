package server

import (
	"encoding/json"
	"errors"
	"gdsync/internal/engine"
	"gdsync/internal/model"
	"gdsync/internal/progress"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct{}

func (fakeStatus) Status() engine.Status {
	return engine.Status{RunID: "r1", Phase: engine.PhaseDownloading, Batch: model.BatchNew, New: 3}
}

func (fakeStatus) Progress() []progress.Item {
	return []progress.Item{{Key: "/m/a.txt", ProgressRecord: model.ProgressRecord{Percent: 40, Bytes: 4, Total: 10, State: model.TransferRunning}}}
}

type fakeHistory struct {
	limit int
	err   error
}

func (f *fakeHistory) GetRecent(limit int) ([]model.History, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []model.History{{RunID: "r1", LocalPath: "/m/a.txt", Status: model.StatusSuccess}}, nil
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestStatus(t *testing.T) {
	rec := get(t, New(fakeStatus{}, &fakeHistory{}, 0), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var got engine.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, engine.PhaseDownloading, got.Phase)
	assert.Equal(t, 3, got.New)
}

func TestProgress(t *testing.T) {
	rec := get(t, New(fakeStatus{}, &fakeHistory{}, 0), "/progress")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Files []progress.Item `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Files, 1)
	assert.Equal(t, "/m/a.txt", got.Files[0].Key)
	assert.Equal(t, 40, got.Files[0].Percent)
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{}
	s := New(fakeStatus{}, hist, 0)

	rec := get(t, s, "/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultHistoryLimit, hist.limit)

	rec = get(t, s, "/history?n=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, hist.limit)

	rec = get(t, s, "/history?n=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryErrors(t *testing.T) {
	rec := get(t, New(fakeStatus{}, &fakeHistory{err: errors.New("db locked")}, 0), "/history")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(t, New(fakeStatus{}, nil, 0), "/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
