// Package bootstrap wires configuration into the components shared by the
// worker, the admin API and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/agent"
	"github.com/feichai0017/resource-ocr/internal/ocr"
	"github.com/feichai0017/resource-ocr/internal/repository"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/queue"
	"github.com/feichai0017/resource-ocr/pkg/storage"
	"github.com/feichai0017/resource-ocr/pkg/storage/minio"
	"github.com/feichai0017/resource-ocr/pkg/storage/s3"
)

// NewLogger builds the process logger; name selects the log file.
func NewLogger(name string) (logger.Logger, error) {
	serverCfg := cfg.GetServerConfig()
	return logger.NewLogger(
		logger.WithLevel(serverCfg.LogLevel),
		logger.WithEncoding(serverCfg.LogEncoding),
		logger.WithOutputPaths([]string{"stdout", filepath.Join(serverCfg.LogDir, name+".log")}),
		logger.WithErrorPaths([]string{filepath.Join(serverCfg.LogDir, name+"-error.log")}),
		logger.WithInitialFields(map[string]interface{}{"app": name}),
	)
}

// NewStorage opens the blob backend selected by RESOURCE_STORAGE.
func NewStorage(ctx context.Context, log logger.Logger) (storage.Storage, error) {
	storageCfg := cfg.GetStorageConfig()
	switch storage.StorageType(storageCfg.Type) {
	case storage.StorageTypeLocal, "":
		return storage.NewLocalStorage(storageCfg.ResourceDir)
	case storage.StorageTypeS3:
		return s3.NewS3Storage(ctx, log)
	case storage.StorageTypeMinio:
		return minio.NewMinioStorage(ctx, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageCfg.Type)
	}
}

// QueueConfig maps the redis settings onto the queue.
func QueueConfig() *queue.QueueConfig {
	redisCfg := cfg.GetRedisConfig()
	return &queue.QueueConfig{
		RedisAddr:     redisCfg.Addr,
		RedisPassword: redisCfg.Password,
		RedisDB:       redisCfg.DB,
		UniqueFor:     cfg.GetOcrConfig().Interval,
		ReportTTL:     redisCfg.ReportTTL,
	}
}

// App holds the wired OCR pipeline and what it depends on.
type App struct {
	Logger  logger.Logger
	Repo    repository.Repository
	Queue   *queue.AsynqQueue
	Service *ocr.Service
}

// Options control the optional parts of NewApp.
type Options struct {
	// WithQueue connects to redis so cycle reports are persisted.
	WithQueue bool
	// Engine overrides OCR_ENGINE when not empty.
	Engine string
}

// NewApp opens the repository and blob storage and builds the OCR service.
func NewApp(ctx context.Context, log logger.Logger, opts Options) (*App, error) {
	ocrCfg := *cfg.GetOcrConfig()
	if opts.Engine != "" {
		ocrCfg.Engine = opts.Engine
	}

	app := &App{Logger: log}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	repo, err := repository.Open(ctx, cfg.GetDatabaseConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open resource database: %w", err)
	}
	app.Repo = repo

	backend, err := NewStorage(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	resolver := storage.NewResolver(backend, cfg.GetStorageConfig().DownloadDir, log.Named("storage"))

	engine, err := agent.NewEngine(ctx, &ocrCfg, log)
	if err != nil {
		return nil, err
	}

	serviceCfg := &ocr.ServiceConfig{
		Locale:             func() string { return ocrCfg.Locale },
		TempDir:            ocrCfg.TempDir,
		BatchSize:          ocrCfg.BatchSize,
		PageConcurrency:    ocrCfg.PageConcurrency,
		RecognitionTimeout: ocrCfg.RecognitionTimeout,
		EngineName:         engine.Name(),
	}

	if opts.WithQueue {
		q, err := queue.NewAsynqQueue(QueueConfig())
		if err != nil {
			engine.Dispose()
			return nil, fmt.Errorf("failed to initialize queue: %w", err)
		}
		app.Queue = q
		serviceCfg.Reporter = q
	}

	app.Service = ocr.NewService(engine, agent.NewPageExtractor(&ocrCfg, log), repo, resolver, log, serviceCfg)
	ok = true
	return app, nil
}

// Close releases everything NewApp opened.
func (a *App) Close() error {
	var errs []error
	if a.Service != nil {
		if err := a.Service.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Repo != nil {
		if err := a.Repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
