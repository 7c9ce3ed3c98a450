package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"scrumtools/backend/internal/audit/domain"
	auditrepo "scrumtools/backend/internal/audit/repository"
)

// IPExtractor returns the client IP from the request context (e.g. gRPC peer or HTTP remote address).
type IPExtractor func(context.Context) string

// AuditLogger records one applied poker command.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, teamID, userID, action, sessionID, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry for a poker session. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, teamID, userID, action, sessionID, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		TeamID:     teamID,
		UserID:     userID,
		Action:     action,
		Resource:   domain.ResourcePokerSession,
		ResourceID: sessionID,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, sessionID, err)
	}
}
