package services

import (
	"context"
	"log"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

type auditWriter interface {
	Insert(ctx context.Context, event *models.AuditEvent) error
}

// AuditService is an insert-only event log. Recording never fails the caller:
// a write error is logged and dropped, because audit is a side channel, not
// part of any operation's contract.
type AuditService struct {
	repo auditWriter
}

func NewAuditService(repo auditWriter) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Record(ctx context.Context, actorRole, actorID, action, detail string) {
	if s == nil || s.repo == nil {
		return
	}
	event := &models.AuditEvent{
		ActorRole: actorRole,
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		log.Printf("audit record %s: %v", action, err)
	}
}
