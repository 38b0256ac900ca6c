package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage serves blobs from a resource directory on disk.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open resource directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resource directory %s is not a directory", root)
	}
	return &LocalStorage{root: root}, nil
}

func (l *LocalStorage) LocalPath(key string) (string, error) {
	path := filepath.Join(l.root, filepath.Base(key))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return path, nil
}

func (l *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := l.LocalPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}
