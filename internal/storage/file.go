package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tadventure/engine/pkg/save"
)

// FileStore persists save slots as JSON files in a directory, one
// "<slot>.save" file per slot.
type FileStore struct {
	dir string
}

var _ save.Store = (*FileStore)(nil)

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create saves directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(slot string) string {
	return filepath.Join(f.dir, slot+".save")
}

func (f *FileStore) Put(ctx context.Context, slot string, data []byte) error {
	if err := os.WriteFile(f.path(slot), data, 0o644); err != nil {
		return fmt.Errorf("write save file: %w", err)
	}
	return nil
}

func (f *FileStore) Get(ctx context.Context, slot string) ([]byte, error) {
	data, err := os.ReadFile(f.path(slot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Absent slot is not an error
		}
		return nil, fmt.Errorf("read save file: %w", err)
	}
	return data, nil
}

func (f *FileStore) Delete(ctx context.Context, slot string) error {
	if err := os.Remove(f.path(slot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete save file: %w", err)
	}
	return nil
}
