package repository

import (
	"context"

	"scrumtools/backend/internal/poker/domain"
)

// Repository defines persistence for poker sessions. Implementations store and return clones,
// so callers may mutate what they get back without affecting stored state.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetActiveByTeam returns the team's active session, or nil if there is none.
	GetActiveByTeam(ctx context.Context, teamID string) (*domain.Session, error)
	// ListByTeam returns the team's sessions newest first, at most limit of them.
	ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.Session, error)
	// Create stores a new session. It returns domain.ErrConflict when the team already has an active one.
	Create(ctx context.Context, s *domain.Session) error
	// Update replaces a stored session whose current version is prevVersion.
	// It returns domain.ErrVersionConflict when the stored version differs.
	Update(ctx context.Context, s *domain.Session, prevVersion int64) error
	// Replace atomically stores old (already marked superseded, stored at oldPrevVersion) and creates next.
	Replace(ctx context.Context, old *domain.Session, oldPrevVersion int64, next *domain.Session) error
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// DefaultListLimit bounds ListByTeam when the caller passes a non-positive limit.
const DefaultListLimit = 50
