package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/repository"
	"github.com/feichai0017/resource-ocr/internal/utils/validator"
	"github.com/feichai0017/resource-ocr/pkg/converters"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

// ErrQueueUnavailable is returned by queue backed operations when the
// service runs without redis.
var ErrQueueUnavailable = errors.New("maintenance queue is not configured")

// Store is the part of the repository the service reads and resets.
type Store interface {
	Get(ctx context.Context, id string) (*models.Resource, error)
	ResetOcr(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[models.OcrStatus]int, error)
}

type Service struct {
	store  Store
	queue  queue.Queue
	logger logger.Logger
}

var _ ResourceService = (*Service)(nil)

// NewService accepts a nil queue; trigger and report operations then fail
// with ErrQueueUnavailable.
func NewService(store Store, q queue.Queue, log logger.Logger) *Service {
	return &Service{
		store:  store,
		queue:  q,
		logger: log.Named("resources"),
	}
}

func (s *Service) GetResult(ctx context.Context, id string) (*converters.OcrResult, error) {
	if err := validator.ResourceID(id); err != nil {
		return nil, err
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return converters.ToOcrResult(r), nil
}

// Retry puts a resource back in the queue of the next cycle.
func (s *Service) Retry(ctx context.Context, id string) error {
	if err := validator.ResourceID(id); err != nil {
		return err
	}
	if err := s.store.ResetOcr(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Resource reset for OCR", logger.String("resourceId", id))
	return nil
}

func (s *Service) Stats(ctx context.Context) (converters.StatusCounts, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return converters.ToStatusCounts(counts), nil
}

func (s *Service) TriggerMaintenance(ctx context.Context, req *queue.MaintenanceRequest) (*queue.TaskStatus, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	if err := validator.Locale(req.Locale); err != nil {
		return nil, err
	}
	status, err := s.queue.EnqueueMaintenance(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to trigger maintenance: %w", err)
	}
	s.logger.Info("Maintenance triggered",
		logger.String("taskId", status.TaskID),
		logger.Bool("duplicate", status.Duplicate),
		logger.String("requestedBy", req.RequestedBy),
	)
	return status, nil
}

func (s *Service) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	return s.queue.GetTaskStatus(ctx, taskID)
}

func (s *Service) LatestReport(ctx context.Context) (*models.ProcessingSummary, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	return s.queue.LatestSummary(ctx)
}

func (s *Service) RecentReports(ctx context.Context, n int) ([]*models.ProcessingSummary, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	return s.queue.RecentSummaries(ctx, n)
}

// IsNotFound reports errors that map to a missing resource, task or report.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, queue.ErrTaskNotFound) ||
		errors.Is(err, queue.ErrNoReport)
}
