package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvackit/fieldsync/internal/model"
)

// ErrorCodeRepository reads the error-code catalog.
type ErrorCodeRepository struct {
	pool *pgxpool.Pool
}

// NewErrorCodeRepository returns an ErrorCodeRepository using the given pool.
func NewErrorCodeRepository(pool *pgxpool.Pool) *ErrorCodeRepository {
	return &ErrorCodeRepository{pool: pool}
}

// List returns the full catalog ordered by code then system name. The order
// is stable so agents can rank search results deterministically.
func (r *ErrorCodeRepository) List(ctx context.Context) ([]model.ErrorCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, system_name, brand, meaning, solution, updated_at
		FROM error_codes
		ORDER BY code, system_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.ErrorCode
	for rows.Next() {
		var ec model.ErrorCode
		if err := rows.Scan(
			&ec.Code,
			&ec.SystemName,
			&ec.Brand,
			&ec.Meaning,
			&ec.Solution,
			&ec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, ec)
	}
	return list, rows.Err()
}
