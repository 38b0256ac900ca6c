package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// ErrNotFound is returned when no resource has the requested id.
var ErrNotFound = errors.New("resource not found")

// Repository is the resource table as seen by the OCR service, the admin
// API and the CLI.
type Repository interface {
	// FetchPending returns up to limit resources still waiting for OCR whose
	// mime type is one of mimeTypes, oldest first, with only fields loaded.
	FetchPending(ctx context.Context, mimeTypes, fields []string, limit int) ([]models.Resource, error)
	// Save applies the non-nil fields of update. Updating a resource that no
	// longer exists is not an error.
	Save(ctx context.Context, update models.ResourceUpdate) error
	Get(ctx context.Context, id string) (*models.Resource, error)
	// ResetOcr puts a resource back in the pending state.
	ResetOcr(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[models.OcrStatus]int, error)
	Close() error
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the database selected by DB_DRIVER and applies the
// schema.
func Open(ctx context.Context, dbCfg *cfg.DatabaseConfig, log logger.Logger) (Repository, error) {
	switch strings.ToLower(dbCfg.Driver) {
	case DriverSQLite, "":
		return NewSQLiteStore(dbCfg.DSN, log)
	case DriverPostgres, "pgx":
		return NewPostgresStore(ctx, dbCfg, log)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbCfg.Driver)
	}
}

const fullColumns = "id, title, mime, file_extension, encryption_applied, ocr_status, ocr_text, ocr_error, updated_time"

// projectable columns of FetchPending
var columns = map[string]func(r *models.Resource) any{
	"id":                 func(r *models.Resource) any { return &r.ID },
	"title":              func(r *models.Resource) any { return &r.Title },
	"mime":               func(r *models.Resource) any { return &r.Mime },
	"file_extension":     func(r *models.Resource) any { return &r.FileExtension },
	"encryption_applied": func(r *models.Resource) any { return &r.EncryptionApplied },
	"ocr_status":         func(r *models.Resource) any { return &r.OcrStatus },
	"ocr_text":           func(r *models.Resource) any { return &r.OcrText },
	"ocr_error":          func(r *models.Resource) any { return &r.OcrError },
}

// projection validates fields and always includes id.
func projection(fields []string) ([]string, error) {
	out := []string{"id"}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "id" {
			continue
		}
		if _, ok := columns[f]; !ok {
			return nil, fmt.Errorf("unknown resource field: %s", f)
		}
		out = append(out, f)
	}
	return out, nil
}

func scanTargets(r *models.Resource, fields []string) []any {
	targets := make([]any, len(fields))
	for i, f := range fields {
		targets[i] = columns[f](r)
	}
	return targets
}

// fullTargets matches fullColumns; updated is converted by the caller.
func fullTargets(r *models.Resource, updated *int64) []any {
	return []any{&r.ID, &r.Title, &r.Mime, &r.FileExtension, &r.EncryptionApplied, &r.OcrStatus, &r.OcrText, &r.OcrError, updated}
}

// updateStatement builds the SET clause of Save. placeholder returns the
// bind marker of the n-th argument (1 based).
func updateStatement(update models.ResourceUpdate, now time.Time, placeholder func(n int) string) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = "+placeholder(len(args)))
	}

	if update.OcrStatus != nil {
		add("ocr_status", int(*update.OcrStatus))
	}
	if update.OcrText != nil {
		add("ocr_text", *update.OcrText)
	}
	if update.OcrError != nil {
		add("ocr_error", *update.OcrError)
	}
	add("updated_time", now.UnixMilli())

	args = append(args, update.ID)
	query := "UPDATE resources SET " + strings.Join(sets, ", ") + " WHERE id = " + placeholder(len(args))
	return query, args
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// upMigrations lists dir/NNN_*.up.sql in version order.
func upMigrations(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, dir+"/"+entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func migrationVersion(path string) (int, bool) {
	var version int
	name := path[strings.LastIndex(path, "/")+1:]
	if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
		return 0, false
	}
	return version, true
}
