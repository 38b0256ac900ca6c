package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/repository/migrations"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// SQLiteStore keeps resources in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger logger.Logger
	now    func() time.Time
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database file at path.
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		path:   path,
		logger: log.Named("sqlite"),
		now:    time.Now,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.logger.Info("Resource database ready", logger.String("path", path))
	return s, nil
}

// DB exposes the handle for seeding in tests and tools.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	files, err := upMigrations(migrations.FS, "sqlite")
	if err != nil {
		return err
	}
	for _, name := range files {
		version, ok := migrationVersion(name)
		if !ok || version <= current {
			continue
		}
		content, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) FetchPending(ctx context.Context, mimeTypes, fields []string, limit int) ([]models.Resource, error) {
	if len(mimeTypes) == 0 || limit <= 0 {
		return []models.Resource{}, nil
	}
	cols, err := projection(fields)
	if err != nil {
		return nil, err
	}

	args := []any{int(models.OcrStatusPending)}
	for _, m := range mimeTypes {
		args = append(args, m)
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		"SELECT %s FROM resources WHERE ocr_status = ? AND mime IN (%s) ORDER BY updated_time, id LIMIT ?",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(mimeTypes)), ", "),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending resources: %w", err)
	}
	defer rows.Close()

	resources := []models.Resource{}
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(scanTargets(&r, cols)...); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, update models.ResourceUpdate) error {
	query, args := updateStatement(update, s.now(), func(int) string { return "?" })
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update resource %s: %w", update.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("Resource vanished before its OCR result was saved", logger.String("resourceId", update.ID))
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Resource, error) {
	var r models.Resource
	var updated int64
	err := s.db.QueryRowContext(ctx, "SELECT "+fullColumns+" FROM resources WHERE id = ?", id).
		Scan(fullTargets(&r, &updated)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}
	r.UpdatedTime = fromMillis(updated)
	return &r, nil
}

func (s *SQLiteStore) ResetOcr(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE resources SET ocr_status = ?, ocr_error = '', updated_time = ? WHERE id = ?",
		int(models.OcrStatusPending), s.now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to reset resource %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reset resource %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[models.OcrStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ocr_status, COUNT(*) FROM resources GROUP BY ocr_status")
	if err != nil {
		return nil, fmt.Errorf("failed to count resources: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.OcrStatus]int)
	for rows.Next() {
		var status models.OcrStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
