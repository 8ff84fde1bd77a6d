package diff

import (
	"context"
	"gdsync/internal/fingerprint"
	"gdsync/internal/model"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloMD5 = "5d41402abc4b2a76b9719d911017c592"

func file(dir, name, fp string) model.RemoteEntry {
	return model.RemoteEntry{ID: name, Name: name, Kind: model.KindFile, Fingerprint: fp, Path: dir}
}

func names(entries []model.RemoteEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "same.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "weird.txt"), 0755))

	entries := []model.RemoteEntry{
		file(dir, "same.txt", helloMD5),
		file(dir, "stale.txt", helloMD5),
		file(dir, "missing.txt", helloMD5),
		file(dir, "weird.txt", helloMD5),
		{ID: "d", Name: "folder", Kind: model.KindContainer, Path: dir},
	}

	result, err := NewClassifier(fingerprint.MD5).Classify(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, []string{"missing.txt"}, names(result.New))
	assert.Equal(t, []string{"stale.txt", "weird.txt"}, names(result.Changed))
	assert.Empty(t, result.Staged)
}

func TestClassifyUppercaseFingerprintMatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("hello"), 0644))

	result, err := NewClassifier(fingerprint.MD5).Classify(context.Background(),
		[]model.RemoteEntry{file(dir, "a", "5D41402ABC4B2A76B9719D911017C592")})
	require.NoError(t, err)

	assert.Empty(t, result.New)
	assert.Empty(t, result.Changed)
}

func TestClassifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClassifier(fingerprint.MD5).Classify(ctx, []model.RemoteEntry{file(t.TempDir(), "a", "x")})
	assert.ErrorIs(t, err, context.Canceled)
}
