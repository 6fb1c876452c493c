package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
)

const (
	DefaultFilePerm fs.FileMode = 0o644
	DefaultDirPerm  fs.FileMode = 0o755
)

// LocalStore keeps blobs as files in a single directory.
type LocalStore struct {
	root     string
	filePerm fs.FileMode
	dirPerm  fs.FileMode
	write    func(w io.Writer, data []byte) error
}

// Option customizes a LocalStore.
type Option func(*LocalStore)

func WithFilePerm(perm fs.FileMode) Option {
	return func(s *LocalStore) { s.filePerm = perm }
}

func WithDirPerm(perm fs.FileMode) Option {
	return func(s *LocalStore) { s.dirPerm = perm }
}

// NewLocalStore creates a LocalStore rooted at dir. The directory is created lazily on first Put.
func NewLocalStore(dir string, opts ...Option) *LocalStore {
	s := &LocalStore{
		root:     dir,
		filePerm: DefaultFilePerm,
		dirPerm:  DefaultDirPerm,
		write:    writeAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return &cerrors.StorageError{Op: "put", Key: key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &cerrors.StorageError{Op: "put", Key: key, Err: err}
	}
	if err := os.MkdirAll(s.root, s.dirPerm); err != nil {
		return &cerrors.StorageError{Op: "put", Key: key, Err: err}
	}
	if err := s.writeAtomic(key, data); err != nil {
		return &cerrors.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// writeAtomic writes data to a temporary file next to key and renames it over key,
// so a failed write never leaves a partial blob under key.
func (s *LocalStore) writeAtomic(key string, data []byte) (err error) {
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = s.write(tmp, data); err != nil {
		return err
	}
	if err = tmp.Chmod(s.filePerm); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.root, key))
}

func writeAll(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, &cerrors.StorageError{Op: "get", Key: key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &cerrors.StorageError{Op: "get", Key: key, Err: err}
	}
	data, err := os.ReadFile(filepath.Join(s.root, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &cerrors.StorageError{Op: "get", Key: key, Err: cerrors.ErrBlobNotFound}
		}
		return nil, &cerrors.StorageError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return &cerrors.StorageError{Op: "delete", Key: key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &cerrors.StorageError{Op: "delete", Key: key, Err: err}
	}
	err := os.Remove(filepath.Join(s.root, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &cerrors.StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
