package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// memoryStorage is a remote-style backend without LocalPath.
type memoryStorage struct {
	objects map[string]string
}

func (m *memoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "abc.png", ObjectKey(models.Resource{ID: "abc", FileExtension: "png"}))
	assert.Equal(t, "abc.pdf", ObjectKey(models.Resource{ID: "abc", FileExtension: ".pdf"}))
	assert.Equal(t, "abc", ObjectKey(models.Resource{ID: "abc"}))
}

func TestResolver_LocalStorage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "r1.png"), []byte("png"), 0o600))

	local, err := NewLocalStorage(root)
	require.NoError(t, err)
	resolver := NewResolver(local, filepath.Join(t.TempDir(), "downloads"), logger.NewTestLogger())

	path, release, err := resolver.Resolve(context.Background(), models.Resource{ID: "r1", FileExtension: "png"})
	require.NoError(t, err)
	defer release()
	assert.Equal(t, filepath.Join(root, "r1.png"), path)

	_, _, err = resolver.Resolve(context.Background(), models.Resource{ID: "missing", FileExtension: "png"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_RemoteDownloadAndRelease(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "downloads")
	resolver := NewResolver(&memoryStorage{objects: map[string]string{"r2.jpg": "jpeg-bytes"}}, scratch, logger.NewTestLogger())

	path, release, err := resolver.Resolve(context.Background(), models.Resource{ID: "r2", FileExtension: "jpg"})
	require.NoError(t, err)
	assert.Equal(t, scratch, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "-r2.jpg"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, _, err = resolver.Resolve(context.Background(), models.Resource{ID: "gone", FileExtension: "jpg"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewLocalStorage_RejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewLocalStorage(file)
	assert.Error(t, err)
}
