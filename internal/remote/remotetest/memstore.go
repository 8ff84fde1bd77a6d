// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"gdsync/internal/fingerprint"
	"gdsync/internal/model"
	"gdsync/internal/remote"
	"sync"
)

// Store is a remote tree held in memory. Fail hooks let tests inject
// listing and chunk failures.
type Store struct {
	mu       sync.Mutex
	children map[string][]model.RemoteEntry
	content  map[string][]byte
	listErr  map[string]error
	failures map[string]int
	lists    map[string]int

	// FailChunk, when set, is consulted before each chunk fetch.
	FailChunk func(id string, offset int64) error
}

func New() *Store {
	return &Store{
		children: make(map[string][]model.RemoteEntry),
		content:  make(map[string][]byte),
		listErr:  make(map[string]error),
		failures: make(map[string]int),
		lists:    make(map[string]int),
	}
}

func (s *Store) Name() remote.Provider {
	return remote.ProviderGDrive
}

func (s *Store) Hasher() fingerprint.Hasher {
	return fingerprint.MD5
}

// AddFolder registers an empty container under parent.
func (s *Store) AddFolder(parent, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.children[parent] = append(s.children[parent], model.RemoteEntry{
		ID:   id,
		Name: name,
		Kind: model.KindContainer,
	})
}

// AddFile registers a file under parent and returns its entry.
func (s *Store) AddFile(parent, id, name string, data []byte) model.RemoteEntry {
	sum, _ := fingerprint.MD5.Sum(bytes.NewReader(data))
	entry := model.RemoteEntry{
		ID:           id,
		Name:         name,
		Kind:         model.KindFile,
		Fingerprint:  sum,
		Size:         int64(len(data)),
		ModifiedTime: "2024-01-01T00:00:00Z",
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.children[parent] = append(s.children[parent], entry)
	s.content[id] = data

	return entry
}

// SetContent replaces the bytes of a file without touching its metadata.
func (s *Store) SetContent(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content[id] = data
}

// FailList makes listing container id fail.
func (s *Store) FailList(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listErr[id] = err
}

// FailFetches makes the next n chunk fetches of id fail.
func (s *Store) FailFetches(id string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[id] = n
}

// ListCalls reports how often container id was listed.
func (s *Store) ListCalls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lists[id]
}

func (s *Store) ListChildren(ctx context.Context, containerID string) ([]model.RemoteEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[containerID]++
	if err := s.listErr[containerID]; err != nil {
		return nil, err
	}

	return append([]model.RemoteEntry(nil), s.children[containerID]...), nil
}

func (s *Store) OpenStream(_ context.Context, entry model.RemoteEntry, chunkSize int64) (remote.Stream, error) {
	s.mu.Lock()
	data, ok := s.content[entry.ID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no such object %q", entry.ID)
	}

	return &stream{store: s, id: entry.ID, data: data, chunkSize: chunkSize}, nil
}

var ErrInjected = errors.New("injected failure")

type stream struct {
	store     *Store
	id        string
	data      []byte
	offset    int64
	chunkSize int64
}

func (st *stream) Next(ctx context.Context) (remote.Chunk, error) {
	total := int64(len(st.data))
	if st.offset >= total {
		return remote.Chunk{Received: total, Total: total, Done: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return remote.Chunk{}, err
	}

	s := st.store
	s.mu.Lock()
	failing := s.failures[st.id] > 0
	if failing {
		s.failures[st.id]--
	}
	hook := s.FailChunk
	s.mu.Unlock()

	if failing {
		return remote.Chunk{}, ErrInjected
	}
	if hook != nil {
		if err := hook(st.id, st.offset); err != nil {
			return remote.Chunk{}, err
		}
	}

	end := min(st.offset+st.chunkSize, total)
	chunk := remote.Chunk{
		Data:     st.data[st.offset:end],
		Received: end,
		Total:    total,
		Done:     end >= total,
	}
	st.offset = end

	return chunk, nil
}
