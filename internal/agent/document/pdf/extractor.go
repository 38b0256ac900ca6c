package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/resource-ocr/pkg/logger"
)

type Config struct {
	Pdftoppm string
	DPI      int
	// MaxPages caps rendering; 0 renders every page.
	MaxPages int
}

// Extractor renders PDF pages to PNG files with poppler's pdftoppm.
type Extractor struct {
	cfg    Config
	runner Runner
	logger logger.Logger
}

func NewExtractor(cfg Config, runner Runner, log logger.Logger) *Extractor {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	log = log.Named("pdf")
	if runner == nil {
		runner = NewExecRunner(log)
	}
	return &Extractor{cfg: cfg, runner: runner, logger: log}
}

// ExtractPages writes one PNG per page of sourcePath into outputDir and
// returns their paths in page order. A document without pages yields an
// empty slice. On failure every image already written is removed.
func (e *Extractor) ExtractPages(ctx context.Context, sourcePath, outputDir string) ([]string, error) {
	lastPage := e.cfg.MaxPages
	if n, err := pageCount(sourcePath); err != nil {
		// pdftoppm copes with more documents than the Go parser does
		e.logger.Debug("Could not read page count",
			logger.String("path", sourcePath),
			logger.Error(err),
		)
	} else {
		if n == 0 {
			return []string{}, nil
		}
		if lastPage == 0 || n < lastPage {
			lastPage = n
		}
	}

	// resource names may hold any character, the prefix only holds ours
	prefix := filepath.Join(outputDir, "page_"+uuid.New().String())

	// pdftoppm -r 300 -png [-l N] <in.pdf> <dir/name_uuid>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if lastPage > 0 {
		args = append(args, "-l", strconv.Itoa(lastPage))
	}
	args = append(args, sourcePath, prefix)

	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...)
	pages, listErr := collectPages(prefix)
	if listErr != nil {
		return nil, fmt.Errorf("failed to list extracted pages: %w", listErr)
	}
	if err != nil {
		removeAll(pages)
		msg := strings.TrimSpace(string(errb))
		if msg == "" {
			return nil, fmt.Errorf("pdftoppm failed: %w", err)
		}
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, msg)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images for %s", filepath.Base(sourcePath))
	}

	e.logger.Debug("Extracted PDF pages",
		logger.String("path", sourcePath),
		logger.Int("pages", len(pages)),
	)
	return pages, nil
}

func pageCount(path string) (n int, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// collectPages finds prefix-1.png, prefix-2.png, ... pdftoppm zero-pads the
// page number to the width of the last page, so the order is numeric, not
// lexical.
func collectPages(prefix string) ([]string, error) {
	dir, name := filepath.Split(prefix)
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}

	type page struct {
		num  int
		path string
	}
	var pages []page
	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(fname, name+"-") || !strings.HasSuffix(fname, ".png") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fname, name+"-"), ".png"))
		if err != nil {
			continue
		}
		pages = append(pages, page{num: num, path: filepath.Join(dir, fname)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
