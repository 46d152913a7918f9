package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvackit/fieldsync/internal/model"
)

// AnalyticsRepository persists analytics events and application logs.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository returns an AnalyticsRepository using the given pool.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// InsertEvents writes a batch of events inside one transaction. Rows whose id
// already exists are skipped, so agents may re-deliver a batch after a
// partial failure without creating duplicates.
func (r *AnalyticsRepository) InsertEvents(ctx context.Context, rows []model.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, row := range rows {
			meta, err := json.Marshal(row.Meta)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO app_analytics (id, event_type, page_path, "timestamp", device_id, user_id, metadata)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO NOTHING`,
				row.ID,
				row.EventType,
				row.Path,
				row.Timestamp.UnixMilli(),
				row.DeviceID,
				row.UserID,
				meta,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertLogs writes a batch of log rows inside one transaction, skipping
// already-seen ids like InsertEvents.
func (r *AnalyticsRepository) InsertLogs(ctx context.Context, rows []model.LogRow) error {
	if len(rows) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, row := range rows {
			var stack []byte
			if row.StackTrace != nil {
				var err error
				stack, err = json.Marshal(row.StackTrace)
				if err != nil {
					return err
				}
			}
			meta, err := json.Marshal(row.Meta)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO app_logs (id, level, message, stack_trace, metadata, "timestamp")
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO NOTHING`,
				row.ID,
				row.Level,
				row.Message,
				stack,
				meta,
				row.Timestamp.UnixMilli(),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
