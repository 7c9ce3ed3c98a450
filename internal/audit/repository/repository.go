package repository

import (
	"context"

	"scrumtools/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByTeam returns the newest entries for teamID first.
	ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.AuditLog, error)
}
