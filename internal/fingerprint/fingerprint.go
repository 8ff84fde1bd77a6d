// Package fingerprint computes local content hashes in the same form the
// remote stores report them, so equality means identical bytes.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

type Hasher interface {
	Name() string
	Sum(r io.Reader) (string, error)
}

var (
	// MD5 matches the md5Checksum Google Drive reports for blob files.
	MD5 Hasher = md5Hasher{}

	// DropboxContentHash matches the content_hash field of Dropbox file metadata.
	DropboxContentHash Hasher = dropboxHasher{}
)

// File hashes the file at path. A missing file surfaces as an error satisfying
// errors.Is(err, os.ErrNotExist).
func File(path string, h Hasher) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	sum, err := h.Sum(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return sum, nil
}

// Matches reports whether the local file at path has the remote fingerprint.
func Matches(path, remote string, h Hasher) (bool, error) {
	local, err := File(path, h)
	if err != nil {
		return false, err
	}

	return Equal(local, remote), nil
}

func Equal(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

type md5Hasher struct{}

func (md5Hasher) Name() string { return "md5" }

func (md5Hasher) Sum(r io.Reader) (string, error) {
	return sum(md5.New(), r)
}

const dropboxBlockSize = 4 * 1024 * 1024

type dropboxHasher struct{}

func (dropboxHasher) Name() string { return "dropbox-content-hash" }

// Sum hashes each 4 MiB block with SHA-256, then hashes the concatenated
// block digests.
func (dropboxHasher) Sum(r io.Reader) (string, error) {
	overall := sha256.New()
	block := make([]byte, dropboxBlockSize)

	for {
		n, err := io.ReadFull(r, block)
		if n > 0 {
			digest := sha256.Sum256(block[:n])
			overall.Write(digest[:])
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(overall.Sum(nil)), nil
}

func sum(h hash.Hash, r io.Reader) (string, error) {
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
