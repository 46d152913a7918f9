package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvackit/fieldsync/internal/model"
)

// ContactRepository archives contact-form submissions.
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository returns a ContactRepository using the given pool.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// Create stores one submission. Called after the mail relay succeeds; the
// copy is an archive, not the delivery path.
func (r *ContactRepository) Create(ctx context.Context, msg model.ContactMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contact_messages (id, name, email, subject, message)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), msg.Name, msg.Email, msg.Subject, msg.Message,
	)
	return err
}
