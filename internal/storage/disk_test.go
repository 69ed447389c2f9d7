package storage_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/spec-kit/support-desk/internal/storage"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir, 1<<20)
	gt.NoError(t, err).Required()

	key, written, err := store.Save("report.pdf", strings.NewReader("not really a pdf"))
	gt.NoError(t, err).Required()
	gt.Value(t, written).Equal(int64(len("not really a pdf")))
	gt.Bool(t, strings.HasSuffix(key, "_report.pdf")).True()

	reader, err := store.Open(key)
	gt.NoError(t, err).Required()
	defer reader.Close()
	data, err := io.ReadAll(reader)
	gt.NoError(t, err).Required()
	gt.Value(t, string(data)).Equal("not really a pdf")

	gt.NoError(t, store.Remove(key)).Required()
	_, err = store.Open(key)
	gt.Error(t, err)
}

func TestDiskStoreSizeCap(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir, 8)
	gt.NoError(t, err).Required()

	_, _, err = store.Save("big.bin", strings.NewReader("well over eight bytes"))
	gt.Error(t, err)

	// the partial file must not survive a rejected upload
	entries, err := os.ReadDir(dir)
	gt.NoError(t, err).Required()
	gt.Array(t, entries).Length(0)
}

func TestDiskStoreSanitizesNames(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir, 0)
	gt.NoError(t, err).Required()

	key, _, err := store.Save("../../etc/passwd", strings.NewReader("nope"))
	gt.NoError(t, err).Required()

	// the stored file stays inside the base directory
	path := filepath.Join(dir, key)
	_, statErr := os.Stat(path)
	gt.NoError(t, statErr).Required()
	gt.Bool(t, strings.Contains(key, "/")).False()
}

func TestDiskStoreRemoveMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir, 0)
	gt.NoError(t, err).Required()

	gt.NoError(t, store.Remove("never-existed"))
}
