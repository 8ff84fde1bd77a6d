package model

import "path/filepath"

type EntryKind string

const (
	KindFile      EntryKind = "FILE"
	KindContainer EntryKind = "CONTAINER"
)

// RemoteEntry is one node of the remote tree. Path is the local directory the
// entry belongs in; the walker assigns it once and nothing reassigns it.
type RemoteEntry struct {
	ID           string
	Name         string
	Kind         EntryKind
	Fingerprint  string
	Size         int64
	ModifiedTime string
	Path         string
}

func (e RemoteEntry) IsContainer() bool {
	return e.Kind == KindContainer
}

// LocalPath is where the entry lives on disk.
func (e RemoteEntry) LocalPath() string {
	return filepath.Join(e.Path, e.Name)
}

// DiffResult holds the disjoint sets produced by classification and conflict
// resolution. Unchanged entries are never kept.
type DiffResult struct {
	New     []RemoteEntry
	Changed []RemoteEntry
	Staged  []RemoteEntry
}
