package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sp3dr4/tern/internal/domain"
)

const uniqueViolation = "23505"

type mappingRow struct {
	ID        int64     `db:"id"`
	ShortCode string    `db:"short_code"`
	LongURL   string    `db:"long_url"`
	CreatedAt time.Time `db:"created_at"`
}

func (r mappingRow) toDomain() *domain.Mapping {
	return &domain.Mapping{
		ID:        strconv.FormatInt(r.ID, 10),
		ShortCode: r.ShortCode,
		LongURL:   r.LongURL,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type MappingRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewMappingRepository(db *sqlx.DB, logger *slog.Logger) *MappingRepository {
	return &MappingRepository{db: db, logger: logger}
}

func (r *MappingRepository) Insert(ctx context.Context, mapping *domain.Mapping) (*domain.Mapping, error) {
	query := `
		INSERT INTO mappings (short_code, long_url, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, short_code, long_url, created_at
	`

	var row mappingRow
	err := r.db.QueryRowxContext(ctx, query, mapping.ShortCode, mapping.LongURL, mapping.CreatedAt).StructScan(&row)
	if err != nil {
		return nil, r.translateError(err, "insert mapping")
	}

	r.logger.Debug("Mapping inserted", "short_code", row.ShortCode, "id", row.ID)
	return row.toDomain(), nil
}

func (r *MappingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	var row mappingRow
	query := `SELECT id, short_code, long_url, created_at FROM mappings WHERE short_code = $1`

	if err := r.db.GetContext(ctx, &row, query, shortCode); err != nil {
		return nil, r.translateError(err, "find mapping by short code")
	}
	return row.toDomain(), nil
}

func (r *MappingRepository) FindByID(ctx context.Context, id string) (*domain.Mapping, error) {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var row mappingRow
	query := `SELECT id, short_code, long_url, created_at FROM mappings WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, numericID); err != nil {
		return nil, r.translateError(err, "find mapping by id")
	}
	return row.toDomain(), nil
}

func (r *MappingRepository) Delete(ctx context.Context, id string) error {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM mappings WHERE id = $1`, numericID)
	if err != nil {
		return r.translateError(err, "delete mapping")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MappingRepository) List(ctx context.Context, limit, offset int) ([]*domain.Mapping, error) {
	var rows []mappingRow
	query := `
		SELECT id, short_code, long_url, created_at FROM mappings
		ORDER BY created_at, short_code
		LIMIT $1 OFFSET $2
	`

	// LIMIT NULL means no limit in PostgreSQL.
	var pgLimit any
	if limit > 0 {
		pgLimit = limit
	}

	if err := r.db.SelectContext(ctx, &rows, query, pgLimit, offset); err != nil {
		return nil, r.translateError(err, "list mappings")
	}

	mappings := make([]*domain.Mapping, 0, len(rows))
	for _, row := range rows {
		mappings = append(mappings, row.toDomain())
	}
	return mappings, nil
}

// translateError converts PostgreSQL-specific errors to domain errors
func (r *MappingRepository) translateError(err error, operation string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateKey
		}

		r.logger.Error("PostgreSQL error",
			"operation", operation,
			"code", pqErr.Code,
			"message", pqErr.Message,
			"detail", pqErr.Detail,
		)
		return fmt.Errorf("%s: database error [%s]: %s", operation, pqErr.Code, pqErr.Message)
	}

	return fmt.Errorf("%s: %w", operation, err)
}

func (r *MappingRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *MappingRepository) HealthCheck(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection is nil")
	}
	return r.db.PingContext(ctx)
}
