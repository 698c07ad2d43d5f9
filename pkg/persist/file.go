package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// Snapshotter saves and restores a whole store.
type Snapshotter interface {
	Backend() string
	Save(ctx context.Context, store *knowledge.Store) (int, error)
	Load(ctx context.Context) (*knowledge.Store, error)
}

// FileStore keeps a snapshot in one local file; the codec follows the
// file extension.
type FileStore struct {
	path  string
	codec Codec
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) (*FileStore, error) {
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: codec}, nil
}

func (f *FileStore) Backend() string { return "file" }

// Path returns the snapshot file path.
func (f *FileStore) Path() string { return f.path }

// Save writes the store and returns the number of bytes written. The file is
// replaced atomically.
func (f *FileStore) Save(_ context.Context, store *knowledge.Store) (int, error) {
	data, err := f.codec.Encode(store.Export())
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".semnet-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return 0, fmt.Errorf("rename snapshot: %w", err)
	}
	return len(data), nil
}

// Load reads the file and rebuilds the store.
func (f *FileStore) Load(_ context.Context) (*knowledge.Store, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	doc, err := f.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return restore(doc)
}

// SaveFile writes store to path using the codec chosen by extension.
func SaveFile(path string, store *knowledge.Store) error {
	fs, err := NewFileStore(path)
	if err != nil {
		return err
	}
	_, err = fs.Save(context.Background(), store)
	return err
}

// LoadFile reads a store from path using the codec chosen by extension.
func LoadFile(path string) (*knowledge.Store, error) {
	fs, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}
	return fs.Load(context.Background())
}
