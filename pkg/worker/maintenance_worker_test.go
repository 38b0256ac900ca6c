package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

type fakeProcessor struct {
	languages []string
	summary   *models.ProcessingSummary
	err       error
}

func (f *fakeProcessor) ProcessResources(ctx context.Context) (*models.ProcessingSummary, error) {
	return f.ProcessPending(ctx, "default")
}

func (f *fakeProcessor) ProcessPending(_ context.Context, language string) (*models.ProcessingSummary, error) {
	f.languages = append(f.languages, language)
	return f.summary, f.err
}

func newTestWorker(p Processor) (*MaintenanceWorker, *logger.TestLogger) {
	log := logger.NewTestLogger()
	return &MaintenanceWorker{BaseWorker: BaseWorker{logger: log}, processor: p}, log
}

func TestHandleMaintenance_Locale(t *testing.T) {
	p := &fakeProcessor{summary: &models.ProcessingSummary{Processed: 1}}
	w, _ := newTestWorker(p)

	task, err := queue.NewMaintenanceTask(&queue.MaintenanceRequest{Locale: "fr_FR"})
	require.NoError(t, err)
	require.NoError(t, w.handleMaintenance(context.Background(), task))

	require.NoError(t, w.handleMaintenance(context.Background(), asynq.NewTask(queue.TaskTypeMaintenance, nil)))
	assert.Equal(t, []string{"fra", "default"}, p.languages)
}

func TestHandleMaintenance_Skipped(t *testing.T) {
	w, log := newTestWorker(&fakeProcessor{summary: &models.ProcessingSummary{Skipped: true}})

	require.NoError(t, w.handleMaintenance(context.Background(), asynq.NewTask(queue.TaskTypeMaintenance, nil)))
	assert.Contains(t, log.Messages("INFO"), "A cycle is already running, trigger absorbed")
}

func TestHandleMaintenance_Errors(t *testing.T) {
	storeErr := errors.New("database is locked")
	w, _ := newTestWorker(&fakeProcessor{summary: &models.ProcessingSummary{Error: storeErr.Error()}, err: storeErr})

	err := w.handleMaintenance(context.Background(), asynq.NewTask(queue.TaskTypeMaintenance, nil))
	assert.ErrorIs(t, err, storeErr)

	err = w.handleMaintenance(context.Background(), asynq.NewTask(queue.TaskTypeMaintenance, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
