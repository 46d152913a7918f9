package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvackit/fieldsync/internal/model"
)

// DraftRepository persists offline-authored drafts. Drafts are keyed by a
// client-generated id, so a flush is always an upsert.
type DraftRepository struct {
	pool *pgxpool.Pool
}

// NewDraftRepository returns a DraftRepository using the given pool.
func NewDraftRepository(pool *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{pool: pool}
}

// UpsertFixSteps writes a batch of fix-step drafts inside one transaction.
// Re-delivered drafts overwrite their previous version.
func (r *DraftRepository) UpsertFixSteps(ctx context.Context, drafts []model.FixStepDraft) error {
	if len(drafts) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, d := range drafts {
			tags := d.Tags
			if tags == nil {
				tags = []string{}
			}
			media := d.MediaURLs
			if media == nil {
				media = []string{}
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO fix_steps (id, brand, model, error_code, title, content, tags, media_urls, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
				ON CONFLICT (id) DO UPDATE SET
					brand = EXCLUDED.brand,
					model = EXCLUDED.model,
					error_code = EXCLUDED.error_code,
					title = EXCLUDED.title,
					content = EXCLUDED.content,
					tags = EXCLUDED.tags,
					media_urls = EXCLUDED.media_urls,
					updated_at = now()`,
				d.ID, d.Brand, d.Model, d.ErrorCode, d.Title, d.Content, tags, media,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertErrorMetadata writes a batch of error-description drafts inside one
// transaction, overwriting on re-delivery like UpsertFixSteps.
func (r *DraftRepository) UpsertErrorMetadata(ctx context.Context, drafts []model.ErrorMetadataDraft) error {
	if len(drafts) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, d := range drafts {
			_, err := tx.Exec(ctx, `
				INSERT INTO error_metadata (id, brand, model, category, error_code, meaning, solution, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now())
				ON CONFLICT (id) DO UPDATE SET
					brand = EXCLUDED.brand,
					model = EXCLUDED.model,
					category = EXCLUDED.category,
					error_code = EXCLUDED.error_code,
					meaning = EXCLUDED.meaning,
					solution = EXCLUDED.solution,
					updated_at = now()`,
				d.ID, d.Brand, d.Model, d.Category, d.ErrorCode, d.Meaning, d.Solution,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
