package resource

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/repository"
	"github.com/feichai0017/resource-ocr/internal/utils/validator"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

type memStore struct {
	resources map[string]*models.Resource
}

func (m *memStore) Get(_ context.Context, id string) (*models.Resource, error) {
	r, ok := m.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return r, nil
}

func (m *memStore) ResetOcr(_ context.Context, id string) error {
	r, ok := m.resources[id]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	r.OcrStatus = models.OcrStatusPending
	r.OcrError = ""
	return nil
}

func (m *memStore) CountByStatus(context.Context) (map[models.OcrStatus]int, error) {
	counts := map[models.OcrStatus]int{}
	for _, r := range m.resources {
		counts[r.OcrStatus]++
	}
	return counts, nil
}

func newStore() *memStore {
	return &memStore{resources: map[string]*models.Resource{
		"r1": {ID: "r1", Mime: "image/png", OcrStatus: models.OcrStatusError, OcrError: "boom"},
	}}
}

func TestService_GetAndRetry(t *testing.T) {
	store := newStore()
	svc := NewService(store, nil, logger.NewTestLogger())
	ctx := context.Background()

	res, err := svc.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "error", res.Status)

	require.NoError(t, svc.Retry(ctx, "r1"))
	assert.Equal(t, models.OcrStatusPending, store.resources["r1"].OcrStatus)

	_, err = svc.GetResult(ctx, "nope")
	assert.True(t, IsNotFound(err))

	var verr *validator.ValidationError
	assert.True(t, errors.As(svc.Retry(ctx, "a/b"), &verr))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["pending"])
}

func TestService_WithoutQueue(t *testing.T) {
	svc := NewService(newStore(), nil, logger.NewTestLogger())

	_, err := svc.TriggerMaintenance(context.Background(), &queue.MaintenanceRequest{})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
	_, err = svc.LatestReport(context.Background())
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}
