package repository

import (
	"context"
	"sync"

	"scrumtools/backend/internal/audit/domain"
)

// maxMemoryEntries caps the in-memory log; the oldest entries are discarded first.
const maxMemoryEntries = 10000

// MemoryRepository keeps audit entries in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *a)
	if over := len(r.entries) - maxMemoryEntries; over > 0 {
		r.entries = append([]domain.AuditLog(nil), r.entries[over:]...)
	}
	return nil
}

func (r *MemoryRepository) ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.entries[i].TeamID == teamID {
			e := r.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}
