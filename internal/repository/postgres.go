package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/internal/repository/migrations"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// PostgresStore keeps resources in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
	now    func() time.Time
}

var _ Repository = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dbCfg *cfg.DatabaseConfig, log logger.Logger) (*PostgresStore, error) {
	log = log.Named("postgres")
	log.Info("Connecting to database")

	pc, err := pgxpool.ParseConfig(dbCfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if dbCfg.MaxConns > 0 {
		pc.MaxConns = dbCfg.MaxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "resource-ocr"
	if dbCfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(dbCfg.StatementTimeout.Milliseconds(), 10)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: log, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Successfully connected to database")
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	files, err := upMigrations(migrations.FS, "postgres")
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
		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func pgPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (s *PostgresStore) FetchPending(ctx context.Context, mimeTypes, fields []string, limit int) ([]models.Resource, error) {
	if len(mimeTypes) == 0 || limit <= 0 {
		return []models.Resource{}, nil
	}
	cols, err := projection(fields)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + strings.Join(cols, ", ") +
		" FROM resources WHERE ocr_status = $1 AND mime = ANY($2) ORDER BY updated_time, id LIMIT $3"
	rows, err := s.pool.Query(ctx, query, int(models.OcrStatusPending), mimeTypes, limit)
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

func (s *PostgresStore) Save(ctx context.Context, update models.ResourceUpdate) error {
	query, args := updateStatement(update, s.now(), pgPlaceholder)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update resource %s: %w", update.ID, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("Resource vanished before its OCR result was saved", logger.String("resourceId", update.ID))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Resource, error) {
	var r models.Resource
	var updated int64
	err := s.pool.QueryRow(ctx, "SELECT "+fullColumns+" FROM resources WHERE id = $1", id).
		Scan(fullTargets(&r, &updated)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}
	r.UpdatedTime = fromMillis(updated)
	return &r, nil
}

func (s *PostgresStore) ResetOcr(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE resources SET ocr_status = $1, ocr_error = '', updated_time = $2 WHERE id = $3",
		int(models.OcrStatusPending), s.now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to reset resource %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[models.OcrStatus]int, error) {
	rows, err := s.pool.Query(ctx, "SELECT ocr_status, COUNT(*) FROM resources GROUP BY ocr_status")
	if err != nil {
		return nil, fmt.Errorf("failed to count resources: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.OcrStatus]int)
	for rows.Next() {
		var status int16
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.OcrStatus(status)] = int(n)
	}
	return counts, rows.Err()
}
