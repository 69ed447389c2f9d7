// Package storage persists attachment bytes on local disk. Uploads pair a
// disk write with a DB insert; the caller removes the file again when the
// insert fails so no surviving record references a missing or orphaned
// file.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// DiskStore writes attachment files under a base directory, one file per
// storage key.
type DiskStore struct {
	baseDir  string
	maxBytes int64
}

// NewDiskStore creates the base directory if needed.
func NewDiskStore(baseDir string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, apperrors.NewStorageIOFailure("init", err)
	}
	return &DiskStore{baseDir: baseDir, maxBytes: maxBytes}, nil
}

// Save streams content to a new file and returns its storage key and
// written size. Oversized content aborts the write and removes the
// partial file.
func (s *DiskStore) Save(fileName string, content io.Reader) (string, int64, error) {
	key := uuid.NewString() + "_" + sanitizeName(fileName)
	path := filepath.Join(s.baseDir, key)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, apperrors.NewStorageIOFailure("write", err)
	}

	var reader io.Reader = content
	if s.maxBytes > 0 {
		reader = io.LimitReader(content, s.maxBytes+1)
	}
	written, err := io.Copy(f, reader)
	closeErr := f.Close()

	if err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, apperrors.NewStorageIOFailure("write", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		_ = os.Remove(path)
		return "", 0, apperrors.NewValidationError("file exceeds maximum upload size", map[string]any{
			"max_bytes": s.maxBytes,
		})
	}
	return key, written, nil
}

// Remove deletes the stored bytes for a key. A missing file is not an
// error; the goal state is the file being gone.
func (s *DiskStore) Remove(key string) error {
	path := filepath.Join(s.baseDir, key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewStorageIOFailure("delete", err)
	}
	return nil
}

// Open returns a reader over the stored bytes.
func (s *DiskStore) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.baseDir, key))
	if err != nil {
		return nil, apperrors.NewStorageIOFailure("read", err)
	}
	return f, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "file"
	}
	return name
}
