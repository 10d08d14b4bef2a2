package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/sp3dr4/tern/internal/domain"
)

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
	db *sqlx.DB
}

func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

func (r *MappingRepository) Insert(ctx context.Context, mapping *domain.Mapping) (*domain.Mapping, error) {
	row := mappingRow{
		ShortCode: mapping.ShortCode,
		LongURL:   mapping.LongURL,
		CreatedAt: mapping.CreatedAt.UTC(),
	}

	query := `
		INSERT INTO mappings (short_code, long_url, created_at)
		VALUES (:short_code, :long_url, :created_at)
	`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, domain.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert mapping: %w", err)
	}

	row.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert mapping: %w", err)
	}

	return row.toDomain(), nil
}

func (r *MappingRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.Mapping, error) {
	var row mappingRow
	query := `SELECT id, short_code, long_url, created_at FROM mappings WHERE short_code = $1`

	if err := r.db.GetContext(ctx, &row, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
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
		return err
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
	// SQLite treats a negative LIMIT as unbounded.
	if limit <= 0 {
		limit = -1
	}

	var rows []mappingRow
	query := `
		SELECT id, short_code, long_url, created_at FROM mappings
		ORDER BY created_at, short_code
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, err
	}

	mappings := make([]*domain.Mapping, 0, len(rows))
	for _, row := range rows {
		mappings = append(mappings, row.toDomain())
	}
	return mappings, nil
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
