package remote

import (
	"context"
	"fmt"
	"gdsync/internal/fingerprint"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"go.uber.org/zap"
)

// dropboxAPI is the part of files.Client the store needs.
type dropboxAPI interface {
	ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error)
	ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error)
	Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error)
}

type DropboxStore struct {
	client dropboxAPI
}

func NewDropboxStore(client dropboxAPI) *DropboxStore {
	return &DropboxStore{client: client}
}

func (s *DropboxStore) Name() Provider {
	return ProviderDropbox
}

func (s *DropboxStore) Hasher() fingerprint.Hasher {
	return fingerprint.DropboxContentHash
}

// ListChildren lists one folder. The SDK takes no context, so cancellation is
// only observed between pages.
func (s *DropboxStore) ListChildren(ctx context.Context, containerID string) ([]model.RemoteEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.client.ListFolder(files.NewListFolderArg(containerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %q: %w", containerID, err)
	}

	var entries []model.RemoteEntry
	for {
		for _, m := range res.Entries {
			if entry, ok := dropboxEntry(m); ok {
				entries = append(entries, entry)
			}
		}

		if !res.HasMore {
			return entries, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err = s.client.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return nil, fmt.Errorf("failed to continue listing %q: %w", containerID, err)
		}
	}
}

func dropboxEntry(m files.IsMetadata) (model.RemoteEntry, bool) {
	switch md := m.(type) {
	case *files.FolderMetadata:
		return model.RemoteEntry{
			ID:   md.Id,
			Name: md.Name,
			Kind: model.KindContainer,
		}, true
	case *files.FileMetadata:
		return model.RemoteEntry{
			ID:           md.Id,
			Name:         md.Name,
			Kind:         model.KindFile,
			Fingerprint:  md.ContentHash,
			Size:         int64(md.Size),
			ModifiedTime: md.ServerModified.UTC().Format(time.RFC3339),
		}, true
	default:
		logger.Log.Debug("skipping dropbox entry", zap.String("type", fmt.Sprintf("%T", m)))
		return model.RemoteEntry{}, false
	}
}

func (s *DropboxStore) OpenStream(_ context.Context, entry model.RemoteEntry, chunkSize int64) (Stream, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	fetch := func(ctx context.Context, offset, length int64) (io.ReadCloser, int64, error) {
		if err := ctx.Err(); err != nil {
			return nil, -1, err
		}

		arg := files.NewDownloadArg(entry.ID)
		arg.ExtraHeaders = map[string]string{"Range": rangeHeader(offset, length)}

		meta, content, err := s.client.Download(arg)
		if err != nil {
			return nil, -1, fmt.Errorf("failed to download %s: %w", entry.Name, err)
		}

		total := int64(-1)
		if meta != nil {
			total = int64(meta.Size)
		}

		return content, total, nil
	}

	return newRangeStream(fetch, entry.Size, chunkSize), nil
}

// normalizeDropboxPath maps a user supplied folder to the form the API
// expects: ids pass through, the root is "", others get a leading slash.
func normalizeDropboxPath(p string) string {
	if strings.HasPrefix(p, "id:") || strings.HasPrefix(p, "ns:") {
		return p
	}

	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" {
		return ""
	}

	return "/" + p
}
