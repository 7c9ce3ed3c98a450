package audit

import (
	"context"
	"errors"
	"testing"

	"scrumtools/backend/internal/audit/domain"
	auditrepo "scrumtools/backend/internal/audit/repository"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(ctx context.Context) string { return "192.168.1.1" })

	logger.LogEvent(context.Background(), "team-1", "user-1", "cast_vote", "session-1", "5")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.TeamID != "team-1" || entry.UserID != "user-1" || entry.Action != "cast_vote" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Resource != domain.ResourcePokerSession || entry.ResourceID != "session-1" {
		t.Errorf("resource = %q/%q, want poker_session/session-1", entry.Resource, entry.ResourceID)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want 192.168.1.1", entry.IP)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("id and created_at should be set")
	}
}

func TestLogger_LogEvent_NoIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).LogEvent(context.Background(), "team-1", "user-1", "reveal_votes", "s-1", "")
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want unknown", repo.entries[0].IP)
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	NewLogger(repo, nil).LogEvent(context.Background(), "team-1", "user-1", "cast_vote", "s-1", "")
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil).LogEvent(context.Background(), "team-1", "user-1", "cast_vote", "s-1", "")
}

func TestMemoryRepository_ListByTeam(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, nil)
	ctx := context.Background()
	logger.LogEvent(ctx, "team-1", "u1", "create_session", "s-1", "")
	logger.LogEvent(ctx, "team-2", "u2", "create_session", "s-2", "")
	logger.LogEvent(ctx, "team-1", "u1", "start_voting", "s-1", "")

	list, err := repo.ListByTeam(ctx, "team-1", 0)
	if err != nil {
		t.Fatalf("ListByTeam: %v", err)
	}
	if len(list) != 2 || list[0].Action != "start_voting" {
		t.Errorf("list = %+v, want newest team-1 entries first", list)
	}
}
