package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/ocr"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

// Processor runs OCR cycles on behalf of queued triggers.
type Processor interface {
	ProcessResources(ctx context.Context) (*models.ProcessingSummary, error)
	ProcessPending(ctx context.Context, language string) (*models.ProcessingSummary, error)
}

// MaintenanceWorker consumes ocr:maintenance triggers.
type MaintenanceWorker struct {
	BaseWorker
	processor Processor
}

func NewMaintenanceWorker(cfg *Config, processor Processor, log logger.Logger) *MaintenanceWorker {
	log = log.Named("worker")
	w := &MaintenanceWorker{
		BaseWorker: newBaseWorker(cfg, log),
		processor:  processor,
	}

	// 注册任务处理器
	w.mux.HandleFunc(queue.TaskTypeMaintenance, w.handleMaintenance)
	return w
}

func (w *MaintenanceWorker) handleMaintenance(ctx context.Context, t *asynq.Task) error {
	req, err := queue.ParseMaintenanceTask(t)
	if err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	w.logger.Info("Received maintenance trigger", logger.String("locale", req.Locale))

	var summary *models.ProcessingSummary
	if req.Locale != "" {
		summary, err = w.processor.ProcessPending(ctx, ocr.LanguageCode(req.Locale))
	} else {
		summary, err = w.processor.ProcessResources(ctx)
	}

	if summary != nil {
		w.writeResult(t, summary)
	}
	if err != nil {
		w.logger.Error("Maintenance trigger failed", logger.Error(err))
		return err
	}
	if summary.Skipped {
		w.logger.Info("A cycle is already running, trigger absorbed")
	}
	return nil
}

func (w *MaintenanceWorker) writeResult(t *asynq.Task, summary *models.ProcessingSummary) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		w.logger.Error("Failed to marshal task result", logger.Error(err))
		return
	}
	if _, err := rw.Write(data); err != nil {
		w.logger.Error("Failed to write task result", logger.Error(err))
	}
}
