package remote

import (
	"context"
	"errors"
	"fmt"
	"gdsync/internal/fingerprint"
	"gdsync/internal/logger"
	"gdsync/internal/model"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrSizeChanged means the object no longer has the size it was listed with.
var ErrSizeChanged = errors.New("remote object changed size since listing")

type Provider string

const (
	ProviderGDrive  Provider = "gdrive"
	ProviderDropbox Provider = "dropbox"
)

// Store is the read side of a remote hierarchical file store.
type Store interface {
	Name() Provider
	ListChildren(ctx context.Context, containerID string) ([]model.RemoteEntry, error)
	OpenStream(ctx context.Context, entry model.RemoteEntry, chunkSize int64) (Stream, error)
	Hasher() fingerprint.Hasher
}

// Chunk is one step of a transfer. Received and Total are cumulative.
type Chunk struct {
	Data     []byte
	Received int64
	Total    int64
	Done     bool
}

// Stream yields a remote object chunk by chunk. A failed Next does not
// advance, so the caller may retry it.
type Stream interface {
	Next(ctx context.Context) (Chunk, error)
}

// Ref is the root container reference kept in the marker file.
type Ref struct {
	Provider Provider
	ID       string
}

func (r Ref) String() string {
	return string(r.Provider) + ":" + r.ID
}

// ParseRef accepts "<id>", "gdrive:<id>" or "dropbox:<path-or-id>". A bare
// value is a Google Drive folder id.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, errors.New("empty remote reference")
	}

	prefix, rest, found := strings.Cut(s, ":")
	if !found {
		return Ref{Provider: ProviderGDrive, ID: s}, nil
	}

	switch Provider(prefix) {
	case ProviderGDrive:
		if rest == "" {
			return Ref{}, fmt.Errorf("missing folder id in %q", s)
		}
		return Ref{Provider: ProviderGDrive, ID: rest}, nil
	case ProviderDropbox:
		return Ref{Provider: ProviderDropbox, ID: normalizeDropboxPath(rest)}, nil
	}

	return Ref{}, fmt.Errorf("unknown provider %q", prefix)
}

// fetchFunc returns the requested range and the object's current total size,
// or -1 when the response does not say.
type fetchFunc func(ctx context.Context, offset, length int64) (io.ReadCloser, int64, error)

// rangeStream reads an object of known size in fixed ranges.
type rangeStream struct {
	fetch     fetchFunc
	size      int64
	offset    int64
	chunkSize int64
}

func newRangeStream(fetch fetchFunc, size, chunkSize int64) *rangeStream {
	return &rangeStream{fetch: fetch, size: size, chunkSize: chunkSize}
}

func (s *rangeStream) Next(ctx context.Context) (Chunk, error) {
	if s.offset >= s.size {
		return Chunk{Received: s.offset, Total: s.size, Done: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}

	length := min(s.chunkSize, s.size-s.offset)

	body, total, err := s.fetch(ctx, s.offset, length)
	if err != nil {
		return Chunk{}, err
	}

	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(body)

	if total >= 0 && total != s.size {
		logger.Log.Warn("remote object changed size",
			zap.Int64("listed", s.size),
			zap.Int64("current", total),
			zap.Int64("offset", s.offset))
		return Chunk{}, fmt.Errorf("%w: listed %d bytes, now %d", ErrSizeChanged, s.size, total)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(body, data); err != nil {
		return Chunk{}, fmt.Errorf("short read at offset %d: %w", s.offset, err)
	}

	s.offset += length

	return Chunk{
		Data:     data,
		Received: s.offset,
		Total:    s.size,
		Done:     s.offset >= s.size,
	}, nil
}

func rangeHeader(offset, length int64) string {
	return fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
}

// contentRangeTotal reads the complete length from a "bytes 0-3/10" header.
// It returns -1 when the header is absent or the length is "*".
func contentRangeTotal(h string) int64 {
	_, total, found := strings.Cut(h, "/")
	if !found {
		return -1
	}

	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil {
		return -1
	}

	return n
}
