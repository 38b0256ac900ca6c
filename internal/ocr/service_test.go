package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

type fixture struct {
	engine    *fakeEngine
	extractor *fakeExtractor
	store     *fakeStore
	files     *fakeResolver
	reporter  *fakeReporter
	log       *logger.TestLogger
	cfg       *ServiceConfig
}

func newFixture(t *testing.T, resources ...models.Resource) *fixture {
	t.Helper()
	return &fixture{
		engine:    newFakeEngine(),
		extractor: &fakeExtractor{pages: map[string][]string{}},
		store:     newFakeStore(resources...),
		files:     &fakeResolver{errs: map[string]error{}},
		reporter:  &fakeReporter{},
		log:       logger.NewTestLogger(),
		cfg: &ServiceConfig{
			Locale:    func() string { return "en_GB" },
			TempDir:   t.TempDir(),
			BatchSize: 2,
		},
	}
}

func (f *fixture) service() *Service {
	f.cfg.Reporter = f.reporter
	return NewService(f.engine, f.extractor, f.store, f.files, f.log, f.cfg)
}

func png(id string) models.Resource {
	return models.Resource{ID: id, Mime: "image/png", FileExtension: "png"}
}

func pdfDoc(id string) models.Resource {
	return models.Resource{ID: id, Mime: MimePDF, FileExtension: "pdf"}
}

func TestProcessPending_DrainsAllBatches(t *testing.T) {
	f := newFixture(t, png("r1"), png("r2"), png("r3"), png("r4"), png("r5"))
	f.engine.texts["r3.png"] = "hello"
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 5, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.False(t, summary.Skipped)
	assert.NotEmpty(t, summary.CycleID)
	// three full or partial batches plus the empty one that ends the loop
	assert.Equal(t, 4, f.store.fetches)
	assert.Equal(t, 5, f.store.saveCount())
	assert.Equal(t, int64(5), svc.TotalProcessed())

	r3 := f.store.get("r3")
	assert.Equal(t, models.OcrStatusDone, r3.OcrStatus)
	assert.Equal(t, "hello", r3.OcrText)
	assert.Equal(t, 5, f.files.released)
}

func TestProcessPending_Idempotent(t *testing.T) {
	f := newFixture(t, png("r1"), png("r2"))
	svc := f.service()

	_, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	calls := len(f.engine.Calls())
	saves := f.store.saveCount()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Len(t, f.engine.Calls(), calls)
	assert.Equal(t, saves, f.store.saveCount())
	assert.Contains(t, f.log.Messages("INFO"), "Found 0 resources to process...")
}

func TestProcessPending_SkipsWhileRunning(t *testing.T) {
	f := newFixture(t, png("r1"))
	f.engine.entered = make(chan struct{})
	f.engine.release = make(chan struct{})
	svc := f.service()

	type result struct {
		summary *models.ProcessingSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := svc.ProcessPending(context.Background(), "eng")
		done <- result{s, err}
	}()
	<-f.engine.entered

	skipped, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.True(t, skipped.Skipped)
	assert.Equal(t, 0, skipped.Processed)
	assert.Equal(t, 1, f.store.fetches)
	assert.Len(t, f.engine.Calls(), 1)

	close(f.engine.release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, 1, first.summary.Processed)

	// the guard is released once the cycle returns
	again, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.False(t, again.Skipped)
}

func TestProcessPending_EncryptedResource(t *testing.T) {
	enc := png("secret")
	enc.EncryptionApplied = true
	f := newFixture(t, enc, png("plain"))
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	secret := f.store.get("secret")
	assert.Equal(t, models.OcrStatusError, secret.OcrStatus)
	assert.Equal(t, "cannot OCR encrypted resource: secret", secret.OcrError)
	assert.NotContains(t, f.engine.Calls(), "secret.png")
	assert.NotContains(t, f.files.resolved, "secret")

	assert.Equal(t, models.OcrStatusDone, f.store.get("plain").OcrStatus)
}

func TestProcessPending_PdfPagesJoinedInOrder(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		f := newFixture(t, pdfDoc("doc"))
		f.cfg.PageConcurrency = concurrency
		f.extractor.pages["doc.pdf"] = []string{"doc-1.png", "doc-2.png", "doc-3.png"}
		f.engine.texts["doc-1.png"] = "A"
		f.engine.texts["doc-2.png"] = "B"
		f.engine.texts["doc-3.png"] = "C"
		svc := f.service()

		_, err := svc.ProcessPending(context.Background(), "eng")
		require.NoError(t, err)

		doc := f.store.get("doc")
		assert.Equal(t, models.OcrStatusDone, doc.OcrStatus)
		assert.Equal(t, "A\nB\nC", doc.OcrText)
		assert.Equal(t, "", doc.OcrError)

		require.Len(t, f.extractor.outDirs, 1)
		assert.Equal(t, filepath.Join(f.cfg.TempDir, extractDirName), f.extractor.outDirs[0])
		for _, page := range f.extractor.written {
			_, err := os.Stat(page)
			assert.True(t, os.IsNotExist(err), "page %s should have been removed", page)
		}
	}
}

func TestProcessPending_PdfWithoutPages(t *testing.T) {
	f := newFixture(t, pdfDoc("empty"))
	svc := f.service()

	_, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)

	empty := f.store.get("empty")
	assert.Equal(t, models.OcrStatusDone, empty.OcrStatus)
	assert.Equal(t, "", empty.OcrText)
	assert.Empty(t, f.engine.Calls())
}

func TestProcessPending_PageFailureFailsDocument(t *testing.T) {
	f := newFixture(t, pdfDoc("doc"))
	f.extractor.pages["doc.pdf"] = []string{"doc-1.png", "doc-2.png"}
	f.engine.errs["doc-2.png"] = errBoom
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	doc := f.store.get("doc")
	assert.Equal(t, models.OcrStatusError, doc.OcrStatus)
	assert.Contains(t, doc.OcrError, "boom")
	for _, page := range f.extractor.written {
		_, err := os.Stat(page)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestProcessPending_ExtractionFailure(t *testing.T) {
	f := newFixture(t, pdfDoc("doc"), png("img"))
	f.extractor.err = errors.New("pdftoppm exited with status 1")
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)

	doc := f.store.get("doc")
	assert.Equal(t, models.OcrStatusError, doc.OcrStatus)
	assert.Contains(t, doc.OcrError, "failed to extract pages of resource doc")
	assert.Equal(t, models.OcrStatusDone, f.store.get("img").OcrStatus)
}

func TestProcessPending_UnsupportedTypesExcluded(t *testing.T) {
	word := models.Resource{ID: "word", Mime: "application/msword", FileExtension: "doc"}
	f := newFixture(t, word, png("img"))
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	assert.Equal(t, SupportedMimeTypes, f.store.mimes)
	assert.Equal(t, ResourceFields, f.store.fields)
	assert.Equal(t, models.OcrStatusPending, f.store.get("word").OcrStatus)
	assert.NotContains(t, f.files.resolved, "word")
}

func TestProcessPending_ErrorIsolation(t *testing.T) {
	f := newFixture(t, png("r1"), png("r2"), png("r3"))
	f.engine.errs["r2.png"] = errBoom
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	r2 := f.store.get("r2")
	assert.Equal(t, models.OcrStatusError, r2.OcrStatus)
	assert.Equal(t, "failed to recognize r2.png: boom", r2.OcrError)
	assert.Equal(t, models.OcrStatusDone, f.store.get("r1").OcrStatus)
	assert.Equal(t, models.OcrStatusDone, f.store.get("r3").OcrStatus)

	warnings := f.log.Messages("WARN")
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "Could not process resource r2: "))
}

func TestProcessPending_MissingBlobRecorded(t *testing.T) {
	f := newFixture(t, png("gone"), png("ok"))
	f.files.errs["gone"] = resourceErr("gone.png")
	svc := f.service()

	_, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)

	gone := f.store.get("gone")
	assert.Equal(t, models.OcrStatusError, gone.OcrStatus)
	assert.Contains(t, gone.OcrError, "resource file is missing")
	assert.Equal(t, models.OcrStatusDone, f.store.get("ok").OcrStatus)
}

func TestProcessPending_BlobAccessFailureAborts(t *testing.T) {
	f := newFixture(t, png("r1"), png("r2"))
	f.files.errs["r1"] = errors.New("connection reset")
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.Error(t, err)
	assert.True(t, IsInfrastructure(err))
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, models.OcrStatusPending, f.store.get("r1").OcrStatus)
	assert.Equal(t, models.OcrStatusPending, f.store.get("r2").OcrStatus)
}

func TestProcessPending_SaveFailureAborts(t *testing.T) {
	f := newFixture(t, png("r1"), png("r2"), png("r3"))
	f.store.saveErr["r2"] = errors.New("database is locked")
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.Error(t, err)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "save resource r2", storeErr.Op)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, err.Error(), summary.Error)

	assert.Equal(t, models.OcrStatusDone, f.store.get("r1").OcrStatus)
	assert.Equal(t, models.OcrStatusPending, f.store.get("r3").OcrStatus)
	assert.NotContains(t, f.engine.Calls(), "r3.png")

	// aborted cycles are still reported
	require.Len(t, f.reporter.summaries, 1)
	assert.Equal(t, summary, f.reporter.summaries[0])

	// and do not leave the guard set
	delete(f.store.saveErr, "r2")
	again, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Processed)
}

func TestProcessPending_FetchFailureAborts(t *testing.T) {
	f := newFixture(t, png("r1"))
	f.store.fetchErr = errors.New("no such table: resources")
	svc := f.service()

	_, err := svc.ProcessPending(context.Background(), "eng")
	require.Error(t, err)
	assert.True(t, IsInfrastructure(err))
	assert.Contains(t, err.Error(), "failed to fetch pending resources")
	assert.Empty(t, f.engine.Calls())
}

func TestProcessPending_ScratchDirFailureAborts(t *testing.T) {
	f := newFixture(t, pdfDoc("doc"))
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	f.cfg.TempDir = blocker
	svc := f.service()

	_, err := svc.ProcessPending(context.Background(), "eng")
	var scratchErr *ScratchError
	require.ErrorAs(t, err, &scratchErr)
	assert.Equal(t, models.OcrStatusPending, f.store.get("doc").OcrStatus)
}

func TestProcessPending_Cancelled(t *testing.T) {
	f := newFixture(t, png("r1"))
	svc := f.service()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.ProcessPending(ctx, "eng")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, f.store.saveCount())
	// the report outlives the cycle context
	assert.Len(t, f.reporter.summaries, 1)
}

func TestProcessPending_RecognitionTimeout(t *testing.T) {
	f := newFixture(t, png("slow"))
	f.cfg.RecognitionTimeout = 20 * time.Millisecond
	f.engine.entered = make(chan struct{}, 1)
	f.engine.release = make(chan struct{})
	svc := f.service()

	_, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)

	slow := f.store.get("slow")
	assert.Equal(t, models.OcrStatusError, slow.OcrStatus)
	assert.Contains(t, slow.OcrError, context.DeadlineExceeded.Error())
}

func TestProcessPending_StoreReturningStaleRows(t *testing.T) {
	f := newFixture(t, png("r1"), png("r2"))
	f.store.ignoreSaves = true
	svc := f.service()

	summary, err := svc.ProcessPending(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Len(t, f.engine.Calls(), 2)
	assert.Contains(t, f.log.Messages("WARN"), "Store keeps returning resources that were already processed in this cycle")
}

func TestProcessResources_UsesLocale(t *testing.T) {
	f := newFixture(t, png("r1"))
	f.cfg.Locale = func() string { return "fr_FR" }
	svc := f.service()

	summary, err := svc.ProcessResources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fra", summary.Language)
	assert.Equal(t, []string{"fra"}, f.engine.languages)
}

func TestMaintenance_Logs(t *testing.T) {
	f := newFixture(t, png("r1"))
	svc := f.service()

	require.NoError(t, svc.Maintenance(context.Background()))

	info := f.log.Messages("INFO")
	assert.Contains(t, info, "Processing resources...")
	assert.Contains(t, info, "Processing resource r1 (type image/png)...")
	assert.Contains(t, info, "1 resources have been processed.")
	assert.Contains(t, info, "Done processing resources")
}

func TestMaintenance_ReturnsAbort(t *testing.T) {
	f := newFixture(t, png("r1"))
	f.store.fetchErr = errBoom
	svc := f.service()

	err := svc.Maintenance(context.Background())
	require.Error(t, err)
	assert.Contains(t, f.log.Messages("ERROR"), "Resource processing aborted")
}

func TestService_Dispose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service().Dispose())
	assert.True(t, f.engine.disposed)
}
