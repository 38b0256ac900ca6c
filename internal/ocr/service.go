package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/metrics"
	"github.com/feichai0017/resource-ocr/pkg/storage"
)

// RecognitionEngine turns one image or page into text.
type RecognitionEngine interface {
	Recognize(ctx context.Context, language, filePath string) (models.RecognizeResult, error)
	Dispose() error
}

// PageExtractor renders every page of a document into outputDir and returns
// the image paths in page order.
type PageExtractor interface {
	ExtractPages(ctx context.Context, sourcePath, outputDir string) ([]string, error)
}

// ResourceStore is the subset of the resource database the pipeline needs.
type ResourceStore interface {
	FetchPending(ctx context.Context, mimeTypes, fields []string, limit int) ([]models.Resource, error)
	Save(ctx context.Context, update models.ResourceUpdate) error
}

// FileResolver gives access to the bytes of a resource as a local file.
// release must be called once the path is no longer needed.
type FileResolver interface {
	Resolve(ctx context.Context, r models.Resource) (path string, release func(), err error)
}

// SummaryReporter receives the summary of every completed or aborted cycle.
type SummaryReporter interface {
	SaveSummary(ctx context.Context, summary *models.ProcessingSummary) error
}

type ServiceConfig struct {
	// Locale returns the current application locale; read once per cycle.
	Locale             func() string
	TempDir            string
	BatchSize          int
	PageConcurrency    int
	RecognitionTimeout time.Duration
	EngineName         string
	Reporter           SummaryReporter
}

const extractDirName = "ocr_pdf_extract"

type Service struct {
	engine    RecognitionEngine
	extractor PageExtractor
	store     ResourceStore
	files     FileResolver
	logger    logger.Logger
	config    *ServiceConfig

	processing     atomic.Bool
	totalProcessed atomic.Int64

	extractDirMu sync.Mutex
	extractDir   string
}

func NewService(
	engine RecognitionEngine,
	extractor PageExtractor,
	store ResourceStore,
	files FileResolver,
	log logger.Logger,
	cfg *ServiceConfig,
) *Service {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	if cfg.Locale == nil {
		cfg.Locale = func() string { return "en" }
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 1
	}
	if cfg.EngineName == "" {
		cfg.EngineName = "default"
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Service{
		engine:    engine,
		extractor: extractor,
		store:     store,
		files:     files,
		logger:    log.Named("ocr"),
		config:    cfg,
	}
}

// TotalProcessed returns how many resources this instance has processed
// since it was created.
func (s *Service) TotalProcessed() int64 {
	return s.totalProcessed.Load()
}

// Dispose releases the recognition engine.
func (s *Service) Dispose() error {
	if err := s.engine.Dispose(); err != nil {
		return fmt.Errorf("failed to dispose recognition engine: %w", err)
	}
	return nil
}

// Maintenance runs one cycle in the current application language.
func (s *Service) Maintenance(ctx context.Context) error {
	s.logger.Info("Processing resources...")
	summary, err := s.ProcessResources(ctx)
	if err != nil {
		s.logger.Error("Resource processing aborted", logger.Error(err))
		return err
	}
	if summary.Skipped {
		s.logger.Info("Resource processing already in progress")
		return nil
	}
	s.logger.Info("Done processing resources",
		logger.Int("processed", summary.Processed),
		logger.Duration("duration", summary.Duration),
	)
	return nil
}

// ProcessResources resolves the OCR language and drains pending resources.
func (s *Service) ProcessResources(ctx context.Context) (*models.ProcessingSummary, error) {
	return s.ProcessPending(ctx, LanguageCode(s.config.Locale()))
}

// ProcessPending drains every pending resource. A call made while another
// cycle is running returns a skipped summary without touching anything.
func (s *Service) ProcessPending(ctx context.Context, language string) (*models.ProcessingSummary, error) {
	if !s.processing.CompareAndSwap(false, true) {
		metrics.CyclesSkipped.Inc()
		return &models.ProcessingSummary{Language: language, Skipped: true, StartedAt: time.Now()}, nil
	}
	defer s.processing.Store(false)

	summary := &models.ProcessingSummary{
		CycleID:   uuid.New().String(),
		Language:  language,
		StartedAt: time.Now(),
	}
	log := s.logger.With(logger.String("cycleId", summary.CycleID), logger.String("language", language))

	err := s.drain(ctx, language, summary, log)

	summary.Duration = time.Since(summary.StartedAt)
	outcome := "completed"
	if err != nil {
		outcome = "aborted"
		summary.Error = err.Error()
	}
	metrics.CycleDuration.WithLabelValues(outcome).Observe(summary.Duration.Seconds())
	log.Info(fmt.Sprintf("%d resources have been processed.", summary.Processed),
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("failed", summary.Failed),
		logger.Int64("total", s.totalProcessed.Load()),
	)
	s.report(ctx, summary, log)

	return summary, err
}

func (s *Service) drain(ctx context.Context, language string, summary *models.ProcessingSummary, log logger.Logger) error {
	seen := make(map[string]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resources, err := s.store.FetchPending(ctx, SupportedMimeTypes, ResourceFields, s.config.BatchSize)
		if err != nil {
			return &StoreError{Op: "fetch pending resources", Err: err}
		}

		log.Info(fmt.Sprintf("Found %d resources to process...", len(resources)))
		if len(resources) == 0 {
			return nil
		}

		fresh := 0
		for _, resource := range resources {
			if _, ok := seen[resource.ID]; ok {
				continue
			}
			seen[resource.ID] = struct{}{}
			fresh++

			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.processResource(ctx, language, resource, summary, log); err != nil {
				return err
			}
		}

		if fresh == 0 {
			log.Warn("Store keeps returning resources that were already processed in this cycle",
				logger.Int("count", len(resources)),
			)
			return nil
		}
	}
}

func (s *Service) processResource(
	ctx context.Context,
	language string,
	resource models.Resource,
	summary *models.ProcessingSummary,
	log logger.Logger,
) error {
	log = log.With(logger.String("resourceId", resource.ID), logger.String("mime", resource.Mime))
	log.Info(fmt.Sprintf("Processing resource %s (type %s)...", resource.ID, resource.Mime))

	var update models.ResourceUpdate
	result, err := s.recognize(ctx, language, resource)
	switch {
	case err == nil:
		update = models.DoneUpdate(resource.ID, result.Text)
	case IsInfrastructure(err), ctx.Err() != nil:
		return err
	default:
		log.Warn(fmt.Sprintf("Could not process resource %s: %s", resource.ID, err.Error()))
		update = models.ErrorUpdate(resource.ID, err.Error())
	}

	if err := s.store.Save(ctx, update); err != nil {
		return &StoreError{Op: "save resource " + resource.ID, Err: err}
	}

	summary.Processed++
	s.totalProcessed.Add(1)
	if *update.OcrStatus == models.OcrStatusDone {
		summary.Succeeded++
	} else {
		summary.Failed++
	}
	metrics.ResourcesProcessed.WithLabelValues(update.OcrStatus.String()).Inc()
	return nil
}

func (s *Service) recognize(ctx context.Context, language string, resource models.Resource) (models.RecognizeResult, error) {
	if resource.EncryptionApplied {
		return models.RecognizeResult{}, &PolicyError{ResourceID: resource.ID}
	}

	path, release, err := s.files.Resolve(ctx, resource)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.RecognizeResult{}, fmt.Errorf("resource file is missing: %w", err)
		}
		return models.RecognizeResult{}, &StoreError{Op: "open resource file " + resource.ID, Err: err}
	}
	defer release()

	if !IsMultiPage(resource.Mime) {
		return s.recognizeFile(ctx, language, path)
	}

	dir, err := s.pdfExtractDir()
	if err != nil {
		return models.RecognizeResult{}, err
	}

	pages, err := s.extractor.ExtractPages(ctx, path, dir)
	if err != nil {
		return models.RecognizeResult{}, &ExtractionError{ResourceID: resource.ID, Err: err}
	}
	defer s.removePages(pages)

	texts, err := s.recognizePages(ctx, language, pages)
	if err != nil {
		return models.RecognizeResult{}, err
	}
	return models.RecognizeResult{Text: strings.Join(texts, "\n")}, nil
}

// recognizePages keeps results indexed by page so the join order is the
// document order whatever the concurrency.
func (s *Service) recognizePages(ctx context.Context, language string, pages []string) ([]string, error) {
	texts := make([]string, len(pages))
	if len(pages) == 0 {
		return texts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.PageConcurrency)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			result, err := s.recognizeFile(gctx, language, page)
			if err != nil {
				return err
			}
			texts[i] = result.Text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.PagesRecognized.Add(float64(len(pages)))
	return texts, nil
}

func (s *Service) recognizeFile(ctx context.Context, language, path string) (models.RecognizeResult, error) {
	if s.config.RecognitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RecognitionTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.engine.Recognize(ctx, language, path)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecognitionDuration.WithLabelValues(s.config.EngineName, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return models.RecognizeResult{}, &RecognitionError{Path: filepath.Base(path), Err: err}
	}
	return result, nil
}

// pdfExtractDir creates the scratch directory on first use and reuses it
// for the lifetime of the service.
func (s *Service) pdfExtractDir() (string, error) {
	s.extractDirMu.Lock()
	defer s.extractDirMu.Unlock()

	if s.extractDir != "" {
		return s.extractDir, nil
	}

	dir := filepath.Join(s.config.TempDir, extractDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", &ScratchError{Path: dir, Err: err}
	}
	s.extractDir = dir
	return dir, nil
}

func (s *Service) removePages(pages []string) {
	for _, page := range pages {
		if err := os.Remove(page); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove extracted page",
				logger.String("path", page),
				logger.Error(err),
			)
		}
	}
}

func (s *Service) report(ctx context.Context, summary *models.ProcessingSummary, log logger.Logger) {
	if s.config.Reporter == nil {
		return
	}
	// a cancelled cycle context must not prevent the report
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.config.Reporter.SaveSummary(ctx, summary); err != nil {
		log.Warn("Failed to save cycle summary", logger.Error(err))
	}
}
