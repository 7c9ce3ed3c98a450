package repository

import (
	"context"
	"fmt"
	"sync"

	"scrumtools/backend/internal/poker/domain"
)

// MemoryRepository keeps sessions in process memory. It is the default store when no DATABASE_URL is set.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	byTeam   map[string][]string // session ids in creation order
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*domain.Session),
		byTeam:   make(map[string][]string),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id].Clone(), nil
}

func (r *MemoryRepository) GetActiveByTeam(ctx context.Context, teamID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked(teamID).Clone(), nil
}

func (r *MemoryRepository) ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byTeam[teamID]
	out := make([]*domain.Session, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.sessions[ids[i]].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(s)
}

func (r *MemoryRepository) Update(ctx context.Context, s *domain.Session, prevVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(s, prevVersion)
}

func (r *MemoryRepository) Replace(ctx context.Context, old *domain.Session, oldPrevVersion int64, next *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[old.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, old.ID)
	}
	if stored.Version != oldPrevVersion {
		return fmt.Errorf("%w: session %s at version %d, expected %d", domain.ErrVersionConflict, old.ID, stored.Version, oldPrevVersion)
	}
	if _, exists := r.sessions[next.ID]; exists {
		return fmt.Errorf("%w: session id %s already used", domain.ErrInvalidArgument, next.ID)
	}
	if active := r.activeLocked(next.TeamID); active != nil && active.ID != old.ID {
		return fmt.Errorf("%w: session %s", domain.ErrConflict, active.ID)
	}
	r.sessions[old.ID] = old.Clone()
	r.sessions[next.ID] = next.Clone()
	r.byTeam[next.TeamID] = append(r.byTeam[next.TeamID], next.ID)
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) activeLocked(teamID string) *domain.Session {
	for _, id := range r.byTeam[teamID] {
		if s := r.sessions[id]; s.IsActive() {
			return s
		}
	}
	return nil
}

func (r *MemoryRepository) createLocked(s *domain.Session) error {
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("%w: session id %s already used", domain.ErrInvalidArgument, s.ID)
	}
	if active := r.activeLocked(s.TeamID); active != nil {
		return fmt.Errorf("%w: session %s", domain.ErrConflict, active.ID)
	}
	r.sessions[s.ID] = s.Clone()
	r.byTeam[s.TeamID] = append(r.byTeam[s.TeamID], s.ID)
	return nil
}

func (r *MemoryRepository) updateLocked(s *domain.Session, prevVersion int64) error {
	stored, ok := r.sessions[s.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, s.ID)
	}
	if stored.Version != prevVersion {
		return fmt.Errorf("%w: session %s at version %d, expected %d", domain.ErrVersionConflict, s.ID, stored.Version, prevVersion)
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}
