package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutGetDelete(t *testing.T) {
	// given
	dir := filepath.Join(t.TempDir(), "public", "images")
	s := NewLocalStore(dir)
	ctx := context.Background()

	// when
	require.NoError(t, s.Put(ctx, "1714557600000_m.png", []byte{1, 2, 3}))

	// then
	data, err := s.Get(ctx, "1714557600000_m.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, s.Delete(ctx, "1714557600000_m.png"))
	_, err = s.Get(ctx, "1714557600000_m.png")
	assert.ErrorIs(t, err, cerrors.ErrBlobNotFound)
	assert.ErrorIs(t, err, cerrors.ErrStorage)
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k.png", []byte("old")))
	require.NoError(t, s.Put(ctx, "k.png", []byte("new")))

	data, err := s.Get(ctx, "k.png")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	s := NewLocalStore(t.TempDir())

	assert.NoError(t, s.Delete(context.Background(), "absent.png"))
	assert.NoError(t, s.Delete(context.Background(), "absent.png"))
}

func TestLocalStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	dir := t.TempDir()
	s := NewLocalStore(dir, WithFilePerm(0o600), WithDirPerm(0o700))

	require.NoError(t, s.Put(context.Background(), "a.png", []byte("x")))

	info, err := os.Stat(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLocalStore_RejectsInvalidKeys(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	keys := []string{"", ".", "..", "../escape.png", "a/b.png", `a\b.png`, "x..y", "nul\x00.png", ".upload-123", ".hidden.png"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			err := s.Put(ctx, key, []byte("x"))
			assert.ErrorIs(t, err, cerrors.ErrInvalidKey)

			_, err = s.Get(ctx, key)
			assert.ErrorIs(t, err, cerrors.ErrInvalidKey)

			err = s.Delete(ctx, key)
			assert.ErrorIs(t, err, cerrors.ErrInvalidKey)
		})
	}
}

func TestLocalStore_PutFailsWhenRootIsAFile(t *testing.T) {
	// given
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o600))
	s := NewLocalStore(root)

	// when
	err := s.Put(context.Background(), "a.png", []byte("data"))

	// then
	var se *cerrors.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
	assert.Equal(t, "a.png", se.Key)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, "a.png", []byte("x"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, cerrors.ErrStorage)
}

func TestLocalStore_FailedWriteKeepsPreviousContent(t *testing.T) {
	// given
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k.png", []byte("previous image")))

	errDiskFull := errors.New("no space left on device")
	s.write = func(w io.Writer, data []byte) error {
		_, _ = w.Write(data[:len(data)/2])
		return errDiskFull
	}

	// when
	err := s.Put(ctx, "k.png", []byte("replacement image"))

	// then
	assert.ErrorIs(t, err, errDiskFull)
	assert.ErrorIs(t, err, cerrors.ErrStorage)
	data, err := s.Get(ctx, "k.png")
	require.NoError(t, err)
	assert.Equal(t, "previous image", string(data))
	assertOnlyFiles(t, dir, "k.png")
}

func TestLocalStore_PutLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.png", []byte("a")))
	require.NoError(t, s.Put(ctx, "a.png", []byte("b")))
	require.NoError(t, s.Put(ctx, "c.png", []byte("c")))

	assertOnlyFiles(t, dir, "a.png", "c.png")
}

func assertOnlyFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name())
	}
	assert.ElementsMatch(t, names, got)
}
