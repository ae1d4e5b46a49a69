package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

var (
	// ErrBlobNotFound is returned by BlobStore.Get when the key has never been written.
	ErrBlobNotFound = errors.New("storage: blob not found")

	// ErrCorruptState marks a persisted document that exists but cannot be decoded or validated.
	ErrCorruptState = errors.New("storage: corrupt state")
)

// BlobStore reads and writes whole documents by key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// FileBlobStore keeps each key as a file under Dir.
type FileBlobStore struct {
	Dir string
}

func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if dir == "" {
		return nil, errors.New("storage: data dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	return &FileBlobStore{Dir: dir}, nil
}

func (s *FileBlobStore) path(key string) string {
	return filepath.Join(s.Dir, filepath.Clean("/"+key))
}

func (s *FileBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", key)
	}
	return b, nil
}

// Put writes to a temp file in the same directory and renames it over the
// target, so readers never observe a partially written document.
func (s *FileBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "create dir for %s", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", key)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", key)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %s", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", key)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return errors.Wrapf(err, "rename %s", key)
	}
	return nil
}
