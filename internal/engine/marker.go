package engine

import (
	"errors"
	"fmt"
	"gdsync/internal/remote"
	"gdsync/internal/util"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoMarker = errors.New("marker file not found")

// ReadMarker loads the root container reference kept in dir.
func ReadMarker(dir, name string) (remote.Ref, error) {
	path := filepath.Join(dir, name)

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return remote.Ref{}, fmt.Errorf("%w: couldn't find %s in %s, run 'gdsync init' first", ErrNoMarker, name, dir)
		}
		return remote.Ref{}, fmt.Errorf("failed to read marker: %w", err)
	}

	ref, err := remote.ParseRef(string(b))
	if err != nil {
		return remote.Ref{}, fmt.Errorf("invalid marker %s: %w", path, err)
	}

	return ref, nil
}

func WriteMarker(dir, name string, ref remote.Ref) error {
	path := filepath.Join(dir, name)
	if err := util.AtomicWrite(path, strings.NewReader(ref.String()+"\n")); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}

	return nil
}
