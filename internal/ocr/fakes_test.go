package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/storage"
)

// fakeEngine returns texts keyed by file base name.
type fakeEngine struct {
	mu        sync.Mutex
	texts     map[string]string
	errs      map[string]error
	calls     []string
	languages []string
	disposed  bool

	// when set, Recognize signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{texts: map[string]string{}, errs: map[string]error{}}
}

func (e *fakeEngine) Recognize(ctx context.Context, language, filePath string) (models.RecognizeResult, error) {
	name := filepath.Base(filePath)

	e.mu.Lock()
	e.calls = append(e.calls, name)
	e.languages = append(e.languages, language)
	text, textOK := e.texts[name]
	err := e.errs[name]
	entered, release := e.entered, e.release
	e.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return models.RecognizeResult{}, ctx.Err()
		}
	}
	if err != nil {
		return models.RecognizeResult{}, err
	}
	if !textOK {
		text = "text of " + name
	}
	return models.RecognizeResult{Text: text}, nil
}

func (e *fakeEngine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	return nil
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// fakeExtractor writes one empty file per configured page.
type fakeExtractor struct {
	mu      sync.Mutex
	pages   map[string][]string // source base name -> page file names
	err     error
	outDirs []string
	written []string
}

func (x *fakeExtractor) ExtractPages(_ context.Context, sourcePath, outputDir string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.outDirs = append(x.outDirs, outputDir)
	if x.err != nil {
		return nil, x.err
	}

	var out []string
	for _, name := range x.pages[filepath.Base(sourcePath)] {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
			return nil, err
		}
		out = append(out, path)
		x.written = append(x.written, path)
	}
	return out, nil
}

// fakeStore keeps resources in memory and filters like the real store.
type fakeStore struct {
	mu        sync.Mutex
	resources map[string]*models.Resource
	order     []string
	fetches   int
	saves     []models.ResourceUpdate
	mimes     []string
	fields    []string

	fetchErr error
	saveErr  map[string]error
	// ignoreSaves leaves resources pending, like a store losing writes
	ignoreSaves bool
}

func newFakeStore(resources ...models.Resource) *fakeStore {
	s := &fakeStore{resources: map[string]*models.Resource{}, saveErr: map[string]error{}}
	for _, r := range resources {
		r := r
		s.resources[r.ID] = &r
		s.order = append(s.order, r.ID)
	}
	return s
}

func (s *fakeStore) FetchPending(_ context.Context, mimeTypes, fields []string, limit int) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	s.mimes, s.fields = mimeTypes, fields
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	allowed := map[string]bool{}
	for _, m := range mimeTypes {
		allowed[m] = true
	}
	var out []models.Resource
	for _, id := range s.order {
		r := s.resources[id]
		if r.OcrStatus != models.OcrStatusPending || !allowed[r.Mime] {
			continue
		}
		out = append(out, models.Resource{ID: r.ID, Mime: r.Mime, FileExtension: r.FileExtension, EncryptionApplied: r.EncryptionApplied})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Save(_ context.Context, u models.ResourceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr[u.ID]; err != nil {
		return err
	}
	s.saves = append(s.saves, u)
	r, ok := s.resources[u.ID]
	if !ok || s.ignoreSaves {
		return nil
	}
	if u.OcrStatus != nil {
		r.OcrStatus = *u.OcrStatus
	}
	if u.OcrText != nil {
		r.OcrText = *u.OcrText
	}
	if u.OcrError != nil {
		r.OcrError = *u.OcrError
	}
	return nil
}

func (s *fakeStore) get(id string) models.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.resources[id]
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

// fakeResolver hands out <dir>/<id>.<ext> without touching the disk.
type fakeResolver struct {
	mu       sync.Mutex
	errs     map[string]error
	resolved []string
	released int
}

func (f *fakeResolver) Resolve(_ context.Context, r models.Resource) (string, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[r.ID]; err != nil {
		return "", nil, err
	}
	f.resolved = append(f.resolved, r.ID)
	return filepath.Join("/resources", storage.ObjectKey(r)), func() {
		f.mu.Lock()
		f.released++
		f.mu.Unlock()
	}, nil
}

type fakeReporter struct {
	mu        sync.Mutex
	summaries []*models.ProcessingSummary
	err       error
}

func (f *fakeReporter) SaveSummary(ctx context.Context, s *models.ProcessingSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.summaries = append(f.summaries, s)
	return f.err
}

// manualClock fires timers only when the test advances it.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	var rest []*manualTimer
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case t.at <= c.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Pending counts armed timers.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

func resourceErr(id string) error {
	return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
}
