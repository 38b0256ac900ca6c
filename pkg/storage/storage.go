package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// StorageType 定义存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// ErrNotFound is returned when a resource has no stored blob.
var ErrNotFound = errors.New("resource blob not found")

// Storage gives read access to resource blobs by key.
type Storage interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// LocalPather is implemented by backends whose blobs already live on the
// local filesystem and can be handed to an engine without copying.
type LocalPather interface {
	LocalPath(key string) (string, error)
}

// ObjectKey is the blob name of a resource: its id plus file extension.
func ObjectKey(r models.Resource) string {
	ext := strings.TrimPrefix(r.FileExtension, ".")
	if ext == "" {
		return r.ID
	}
	return r.ID + "." + ext
}

// Resolver materializes resource blobs as local files.
type Resolver struct {
	backend    Storage
	scratchDir string
	logger     logger.Logger

	mu      sync.Mutex
	created bool
}

func NewResolver(backend Storage, scratchDir string, log logger.Logger) *Resolver {
	return &Resolver{
		backend:    backend,
		scratchDir: scratchDir,
		logger:     log,
	}
}

// Resolve returns a local path for r. Remote blobs are downloaded into the
// scratch directory and removed by release.
func (r *Resolver) Resolve(ctx context.Context, res models.Resource) (string, func(), error) {
	key := ObjectKey(res)

	if local, ok := r.backend.(LocalPather); ok {
		path, err := local.LocalPath(key)
		if err != nil {
			return "", nil, err
		}
		return path, func() {}, nil
	}

	if err := r.ensureScratchDir(); err != nil {
		return "", nil, err
	}

	body, err := r.backend.Get(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()

	path := filepath.Join(r.scratchDir, uuid.New().String()+"-"+filepath.Base(key))
	file, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create local copy: %w", err)
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("failed to write local copy: %w", err)
	}

	release := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to remove downloaded resource",
				logger.String("path", path),
				logger.Error(err),
			)
		}
	}
	return path, release, nil
}

func (r *Resolver) ensureScratchDir() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.created {
		return nil
	}
	if err := os.MkdirAll(r.scratchDir, 0o700); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	r.created = true
	return nil
}
