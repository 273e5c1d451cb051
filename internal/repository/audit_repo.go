package repository

import (
	"context"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (actor_role, actor_id, action, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, event.ActorRole, event.ActorID, event.Action, event.Detail).
		Scan(&event.ID, &event.CreatedAt)
}
