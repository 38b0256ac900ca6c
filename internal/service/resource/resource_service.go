package resource

import (
	"context"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/converters"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

// ResourceService backs the admin API and the operator CLI.
type ResourceService interface {
	GetResult(ctx context.Context, id string) (*converters.OcrResult, error)
	Retry(ctx context.Context, id string) error
	Stats(ctx context.Context) (converters.StatusCounts, error)
	TriggerMaintenance(ctx context.Context, req *queue.MaintenanceRequest) (*queue.TaskStatus, error)
	GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error)
	LatestReport(ctx context.Context) (*models.ProcessingSummary, error)
	RecentReports(ctx context.Context, n int) ([]*models.ProcessingSummary, error)
}
