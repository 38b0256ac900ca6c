package config

import (
	"path/filepath"
	"sync"
)

var (
	storageOnce   sync.Once
	storageConfig *StorageConfig
)

// StorageConfig selects where resource blobs are read from.
type StorageConfig struct {
	Type        string // local | minio | s3
	ResourceDir string
	DownloadDir string
}

func GetStorageConfig() *StorageConfig {
	storageOnce.Do(func() {
		loadEnv()
		storageConfig = &StorageConfig{
			Type:        getString("RESOURCE_STORAGE", "local"),
			ResourceDir: getString("RESOURCE_DIR", "data/resources"),
			DownloadDir: getString("RESOURCE_DOWNLOAD_DIR", filepath.Join(GetOcrConfig().TempDir, "ocr_resource_fetch")),
		}
	})
	return storageConfig
}
