package repository

import (
	"context"
	"fmt"

	"aurenix/internal/models"
)

type AuditRepository struct {
	db DB
}

func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert records event once; redelivered stream entries keep the first row.
func (r *AuditRepository) Insert(ctx context.Context, event models.AuthEvent) error {
	const query = `
		INSERT INTO auth_audit (id, event_type, user_id, email, detail, occurred_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		event.ID,
		string(event.Type),
		event.UserID,
		event.Email,
		event.Detail,
		event.At,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
