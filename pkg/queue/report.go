package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/resource-ocr/internal/models"
)

const (
	reportLatestKey = "ocr:report:latest"
	reportListKey   = "ocr:report:recent"
	reportHistory   = 50
)

// ErrNoReport is returned before any cycle has been reported.
var ErrNoReport = errors.New("no cycle report available")

// ReportStore keeps maintenance cycle summaries in redis.
type ReportStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewReportStore(client *redis.Client, ttl time.Duration) *ReportStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReportStore{redis: client, ttl: ttl}
}

// SaveSummary records summary as the latest report and prepends it to the
// bounded history. Skipped cycles did no work and are not recorded.
func (s *ReportStore) SaveSummary(ctx context.Context, summary *models.ProcessingSummary) error {
	if summary.Skipped {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, reportLatestKey, data, s.ttl)
	pipe.LPush(ctx, reportListKey, data)
	pipe.LTrim(ctx, reportListKey, 0, reportHistory-1)
	pipe.Expire(ctx, reportListKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

func (s *ReportStore) LatestSummary(ctx context.Context) (*models.ProcessingSummary, error) {
	data, err := s.redis.Get(ctx, reportLatestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary from redis: %w", err)
	}

	var summary models.ProcessingSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}

// RecentSummaries returns up to n reports, newest first.
func (s *ReportStore) RecentSummaries(ctx context.Context, n int) ([]*models.ProcessingSummary, error) {
	if n <= 0 || n > reportHistory {
		n = reportHistory
	}
	items, err := s.redis.LRange(ctx, reportListKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}

	summaries := make([]*models.ProcessingSummary, 0, len(items))
	for _, item := range items {
		var summary models.ProcessingSummary
		if err := json.Unmarshal([]byte(item), &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}
	return summaries, nil
}

// Ping checks the redis connection.
func (s *ReportStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *ReportStore) Close() error {
	return s.redis.Close()
}
