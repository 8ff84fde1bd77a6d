package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newTestDrive(t *testing.T, handler http.Handler) *GDriveStore {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return NewGDriveStore(svc)
}

func TestGDriveListChildrenPaginates(t *testing.T) {
	var queries []string

	store := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		queries = append(queries, r.URL.Query().Get("q"))

		page := map[string]any{}
		if r.URL.Query().Get("pageToken") == "" {
			page["nextPageToken"] = "p2"
			page["files"] = []map[string]any{
				{"id": "d1", "name": "docs", "mimeType": "application/vnd.google-apps.folder"},
				{"id": "g1", "name": "notes", "mimeType": "application/vnd.google-apps.document"},
			}
		} else {
			page["files"] = []map[string]any{
				{"id": "f1", "name": "a.txt", "mimeType": "text/plain", "md5Checksum": "abc", "size": "12", "modifiedTime": "2024-05-01T10:00:00Z"},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))

	entries, err := store.ListChildren(context.Background(), "root'id")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "docs", entries[0].Name)
	assert.True(t, entries[0].IsContainer())

	assert.Equal(t, "a.txt", entries[1].Name)
	assert.Equal(t, "abc", entries[1].Fingerprint)
	assert.Equal(t, int64(12), entries[1].Size)
	assert.False(t, entries[1].IsContainer())

	require.Len(t, queries, 2)
	assert.Equal(t, `'root\'id' in parents and trashed=false`, queries[0])
}

func TestGDriveListChildrenNotFound(t *testing.T) {
	store := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"File not found"}}`, http.StatusNotFound)
	}))

	_, err := store.ListChildren(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, isNotFound(err))
}

func TestGDriveOpenStreamUsesRanges(t *testing.T) {
	content := []byte(strings.Repeat("x", 5) + strings.Repeat("y", 5) + "z")
	var ranges []string

	store := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/f1", r.URL.Path)
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		ranges = append(ranges, r.Header.Get("Range"))
		http.ServeContent(w, r, "f1", time.Time{}, bytes.NewReader(content))
	}))

	stream, err := store.OpenStream(context.Background(), entryOf("f1", int64(len(content))), 5)
	require.NoError(t, err)

	var got []byte
	for {
		c, err := stream.Next(context.Background())
		require.NoError(t, err)
		got = append(got, c.Data...)
		if c.Done {
			break
		}
	}

	assert.Equal(t, content, got)
	assert.Equal(t, []string{"bytes=0-4", "bytes=5-9", "bytes=10-10"}, ranges)
}

func TestGDriveOpenStreamDetectsGrownFile(t *testing.T) {
	content := []byte("listed at five, now longer")

	store := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "f1", time.Time{}, bytes.NewReader(content))
	}))

	stream, err := store.OpenStream(context.Background(), entryOf("f1", 5), 5)
	require.NoError(t, err)

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, ErrSizeChanged)
}

func TestGDriveWorkspaceDocsAreSkipped(t *testing.T) {
	_, ok := gdriveEntry(&drive.File{Id: "s", Name: "sheet", MimeType: "application/vnd.google-apps.spreadsheet"})
	assert.False(t, ok)

	e, ok := gdriveEntry(&drive.File{Id: "p", Name: "a.pdf", MimeType: "application/pdf", Md5Checksum: "m", Size: 3})
	require.True(t, ok)
	assert.Equal(t, "m", e.Fingerprint)
}
