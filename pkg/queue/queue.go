// pkg/queue/queue.go
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/resource-ocr/internal/models"
)

// TaskType 定义任务类型
const (
	TaskTypeMaintenance = "ocr:maintenance"
)

// QueueName is the asynq queue maintenance triggers are sent to.
const QueueName = "ocr"

// ErrTaskNotFound is returned by GetTaskStatus for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// Queue 接口定义
type Queue interface {
	EnqueueMaintenance(ctx context.Context, req *MaintenanceRequest) (*TaskStatus, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	SaveSummary(ctx context.Context, summary *models.ProcessingSummary) error
	LatestSummary(ctx context.Context) (*models.ProcessingSummary, error)
	RecentSummaries(ctx context.Context, n int) ([]*models.ProcessingSummary, error)
	Close() error
}

// MaintenanceRequest is the payload of a maintenance trigger. An empty
// Locale means the configured application locale.
type MaintenanceRequest struct {
	Locale      string    `json:"locale,omitempty"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// TaskStatus 定义任务状态
type TaskStatus struct {
	TaskID     string    `json:"taskId"`
	Status     string    `json:"status"`
	Duplicate  bool      `json:"duplicate,omitempty"`
	Error      string    `json:"error,omitempty"`
	Result     string    `json:"result,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// QueueConfig 定义队列配置
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// UniqueFor drops triggers while an identical one is still queued.
	UniqueFor      time.Duration
	ProcessTimeout time.Duration
	ReportTTL      time.Duration
	// Retention of completed tasks so their status stays queryable.
	Retention time.Duration
}

// AsynqQueue 实现
type AsynqQueue struct {
	*ReportStore
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       *QueueConfig
}

var _ Queue = (*AsynqQueue)(nil)

// RedisOpt is shared by the client side and the worker server.
func (c *QueueConfig) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// NewAsynqQueue 创建新的队列实例
func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.UniqueFor <= 0 {
		cfg.UniqueFor = 10 * time.Minute
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 2 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &AsynqQueue{
		ReportStore: NewReportStore(redisClient, cfg.ReportTTL),
		client:      asynq.NewClient(cfg.RedisOpt()),
		inspector:   asynq.NewInspector(cfg.RedisOpt()),
		cfg:         cfg,
	}, nil
}

// NewMaintenanceTask builds the asynq task for req.
func NewMaintenanceTask(req *MaintenanceRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return asynq.NewTask(TaskTypeMaintenance, payload), nil
}

// ParseMaintenanceTask decodes the payload of a maintenance task. An empty
// payload is a request with default settings.
func ParseMaintenanceTask(t *asynq.Task) (*MaintenanceRequest, error) {
	req := &MaintenanceRequest{}
	if len(t.Payload()) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(t.Payload(), req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return req, nil
}

// EnqueueMaintenance queues a maintenance trigger. A trigger identical to
// one already waiting is reported as a duplicate instead of an error.
func (q *AsynqQueue) EnqueueMaintenance(ctx context.Context, req *MaintenanceRequest) (*TaskStatus, error) {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	// uniqueness is computed on the payload, so the timestamp is left out
	task, err := NewMaintenanceTask(&MaintenanceRequest{Locale: req.Locale})
	if err != nil {
		return nil, err
	}

	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(0),
		asynq.Timeout(q.cfg.ProcessTimeout),
		asynq.Unique(q.cfg.UniqueFor),
		asynq.Retention(q.cfg.Retention),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return &TaskStatus{Status: "pending", Duplicate: true, EnqueuedAt: req.RequestedAt}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &TaskStatus{TaskID: info.ID, Status: "pending", EnqueuedAt: req.RequestedAt}, nil
}

// GetTaskStatus 获取任务状态
func (q *AsynqQueue) GetTaskStatus(_ context.Context, taskID string) (*TaskStatus, error) {
	info, err := q.inspector.GetTaskInfo(QueueName, taskID)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to inspect task: %w", err)
	}
	return convertAsynqStatus(info), nil
}

func (q *AsynqQueue) Close() error {
	var errs []error
	if err := q.client.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := q.inspector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := q.ReportStore.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// convertAsynqStatus 将 asynq 状态转换为 TaskStatus
func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID: info.ID,
		Result: string(info.Result),
	}

	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled:
		status.Status = "pending"
	case asynq.TaskStateActive:
		status.Status = "running"
	case asynq.TaskStateCompleted:
		status.Status = "completed"
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		status.Status = "failed"
		status.Error = info.LastErr
		status.FinishedAt = info.LastFailedAt
	default:
		status.Status = info.State.String()
	}

	return status
}
