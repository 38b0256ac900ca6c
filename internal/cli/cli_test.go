package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/repository"
	"github.com/feichai0017/resource-ocr/pkg/converters"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

type fakeRunner struct {
	languages []string
	err       error
}

func (f *fakeRunner) ProcessResources(ctx context.Context) (*models.ProcessingSummary, error) {
	return f.ProcessPending(ctx, "eng")
}

func (f *fakeRunner) ProcessPending(_ context.Context, language string) (*models.ProcessingSummary, error) {
	f.languages = append(f.languages, language)
	return &models.ProcessingSummary{CycleID: "c1", Language: language, Processed: 3, Succeeded: 2, Failed: 1, Duration: 1500 * time.Millisecond}, f.err
}

type fakeResources struct {
	retried []string
}

func (f *fakeResources) GetResult(_ context.Context, id string) (*converters.OcrResult, error) {
	if id != "r1" {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return &converters.OcrResult{ID: "r1", Mime: "image/png", Status: "done", Text: "hello\nworld", Lines: 2, Characters: 11}, nil
}

func (f *fakeResources) Retry(_ context.Context, id string) error {
	f.retried = append(f.retried, id)
	return nil
}

func (f *fakeResources) Stats(context.Context) (converters.StatusCounts, error) {
	return converters.StatusCounts{"pending": 1, "done": 5, "error": 0}, nil
}

func (f *fakeResources) TriggerMaintenance(context.Context, *queue.MaintenanceRequest) (*queue.TaskStatus, error) {
	return nil, errors.New("not used")
}

func (f *fakeResources) GetTaskStatus(context.Context, string) (*queue.TaskStatus, error) {
	return nil, errors.New("not used")
}

func (f *fakeResources) LatestReport(context.Context) (*models.ProcessingSummary, error) {
	return nil, errors.New("not used")
}

func (f *fakeResources) RecentReports(context.Context, int) ([]*models.ProcessingSummary, error) {
	return nil, errors.New("not used")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		runLocale = ""
		statusJSON = false
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func inject(t *testing.T, r CycleRunner, res *fakeResources) {
	t.Helper()
	cycleRunner, resourceService = r, res
	t.Cleanup(func() {
		cycleRunner, resourceService = nil, nil
	})
}

func TestRunCmd(t *testing.T) {
	r := &fakeRunner{}
	inject(t, r, &fakeResources{})

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Cycle c1 (eng): 3 processed, 2 done, 1 failed in 1.5s")

	_, err = execute(t, "run", "--locale", "de_DE")
	require.NoError(t, err)
	assert.Equal(t, []string{"eng", "deu"}, r.languages)

	_, err = execute(t, "run", "--locale", "!!")
	assert.Error(t, err)
}

func TestRunCmd_Aborted(t *testing.T) {
	inject(t, &fakeRunner{err: errors.New("failed to save resource r1: disk full")}, &fakeResources{})

	out, err := execute(t, "run")
	assert.ErrorContains(t, err, "cycle aborted")
	assert.Contains(t, out, "3 processed")
}

func TestStatusAndRetryCmd(t *testing.T) {
	res := &fakeResources{}
	inject(t, &fakeRunner{}, res)

	out, err := execute(t, "status", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:   done")
	assert.Contains(t, out, "2 lines, 11 characters")

	out, err = execute(t, "status", "--json", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "done"`)

	_, err = execute(t, "status", "r2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	out, err = execute(t, "retry", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "next cycle")
	assert.Equal(t, []string{"r1"}, res.retried)
}

func TestStatsCmd(t *testing.T) {
	inject(t, &fakeRunner{}, &fakeResources{})

	out, err := execute(t, "stats")
	require.NoError(t, err)
	assert.Equal(t, "done     5\nerror    0\npending  1\n", out)
}

func TestLangCmd(t *testing.T) {
	out, err := execute(t, "lang", "fr_FR")
	require.NoError(t, err)
	assert.Equal(t, "fra\n", out)
}
