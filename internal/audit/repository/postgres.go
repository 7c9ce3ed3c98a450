package repository

import (
	"context"
	"database/sql"

	"scrumtools/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO audit_logs (id, team_id, user_id, action, resource, resource_id, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.TeamID, a.UserID, a.Action, a.Resource, a.ResourceID, a.IP, a.Metadata, a.CreatedAt)
	return err
}

// ListByTeam returns audit logs for the team, newest first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, team_id, user_id, action, resource, resource_id, ip, metadata, created_at
		FROM audit_logs WHERE team_id = $1 ORDER BY created_at DESC LIMIT $2`, teamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.TeamID, &a.UserID, &a.Action, &a.Resource, &a.ResourceID, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
