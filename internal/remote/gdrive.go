package remote

import (
	"context"
	"errors"
	"fmt"
	"gdsync/internal/fingerprint"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	folderMimeType    = "application/vnd.google-apps.folder"
	googleAppsPrefix  = "application/vnd.google-apps."
	gdriveListFields  = "nextPageToken, files(id, name, mimeType, md5Checksum, modifiedTime, size)"
	gdriveListPageMax = 1000
)

type GDriveStore struct {
	svc *drive.Service
}

func NewGDriveStore(svc *drive.Service) *GDriveStore {
	return &GDriveStore{svc: svc}
}

func (s *GDriveStore) Name() Provider {
	return ProviderGDrive
}

func (s *GDriveStore) Hasher() fingerprint.Hasher {
	return fingerprint.MD5
}

func (s *GDriveStore) ListChildren(ctx context.Context, containerID string) ([]model.RemoteEntry, error) {
	var entries []model.RemoteEntry

	q := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(containerID))
	call := s.svc.Files.List().
		Q(q).
		Fields(gdriveListFields).
		PageSize(gdriveListPageMax).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	err := call.Pages(ctx, func(list *drive.FileList) error {
		for _, f := range list.Files {
			entry, ok := gdriveEntry(f)
			if !ok {
				logger.Log.Debug("skipping google workspace document",
					zap.String("name", f.Name),
					zap.String("mime_type", f.MimeType))
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("folder %s not found: %w", containerID, err)
		}
		return nil, fmt.Errorf("failed to list folder %s: %w", containerID, err)
	}

	return entries, nil
}

func gdriveEntry(f *drive.File) (model.RemoteEntry, bool) {
	entry := model.RemoteEntry{
		ID:           f.Id,
		Name:         f.Name,
		ModifiedTime: f.ModifiedTime,
	}

	switch {
	case f.MimeType == folderMimeType:
		entry.Kind = model.KindContainer
	case strings.HasPrefix(f.MimeType, googleAppsPrefix):
		return model.RemoteEntry{}, false
	default:
		entry.Kind = model.KindFile
		entry.Fingerprint = f.Md5Checksum
		entry.Size = f.Size
	}

	return entry, true
}

func (s *GDriveStore) OpenStream(_ context.Context, entry model.RemoteEntry, chunkSize int64) (Stream, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	fetch := func(ctx context.Context, offset, length int64) (io.ReadCloser, int64, error) {
		call := s.svc.Files.Get(entry.ID).SupportsAllDrives(true).Context(ctx)
		call.Header().Set("Range", rangeHeader(offset, length))

		resp, err := call.Download()
		if err != nil {
			return nil, -1, fmt.Errorf("failed to download %s: %w", entry.Name, err)
		}

		return resp.Body, contentRangeTotal(resp.Header.Get("Content-Range")), nil
	}

	return newRangeStream(fetch, entry.Size, chunkSize), nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, "'", `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

func isNotFound(err error) bool {
	if apiErr, ok := errors.AsType[*googleapi.Error](err); ok {
		return apiErr.Code == http.StatusNotFound
	}

	return false
}
