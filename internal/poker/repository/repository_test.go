package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"scrumtools/backend/internal/poker/domain"
)

var creator = domain.Identity{ID: "u-creator", Name: "Casey"}

func newSession(t *testing.T, teamID string, at time.Time) *domain.Session {
	t.Helper()
	s, err := domain.NewSession(uuid.NewString(), teamID, "Story", "", creator, domain.DefaultScale(), at)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

// runRepositoryContract exercises behaviour every Repository implementation must share.
func runRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	team := "team-" + uuid.NewString()

	t.Run("get missing returns nil", func(t *testing.T) {
		s, err := repo.GetByID(ctx, uuid.NewString())
		if err != nil || s != nil {
			t.Errorf("GetByID = %v, %v; want nil, nil", s, err)
		}
	})

	first := newSession(t, team, now)
	t.Run("create and read back", func(t *testing.T) {
		if err := repo.Create(ctx, first); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := repo.GetActiveByTeam(ctx, team)
		if err != nil {
			t.Fatalf("GetActiveByTeam: %v", err)
		}
		if got == nil || got.ID != first.ID || got.Status != domain.StatusWaiting {
			t.Fatalf("active = %+v, want %s WAITING", got, first.ID)
		}
		if got.Scale.String() != first.Scale.String() {
			t.Errorf("scale = %q, want %q", got.Scale.String(), first.Scale.String())
		}
	})

	t.Run("second active session conflicts", func(t *testing.T) {
		err := repo.Create(ctx, newSession(t, team, now))
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("Create err = %v, want ErrConflict", err)
		}
	})

	t.Run("update with votes", func(t *testing.T) {
		s, _ := repo.GetByID(ctx, first.ID)
		prev := s.Version
		if err := s.StartVoting(creator, now); err != nil {
			t.Fatalf("StartVoting: %v", err)
		}
		if _, err := s.CastVote(domain.Identity{ID: "u-1", Name: "One"}, "5", now); err != nil {
			t.Fatalf("CastVote: %v", err)
		}
		if err := repo.Update(ctx, s, prev); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, _ := repo.GetByID(ctx, first.ID)
		if got.Version != prev+2 || got.Votes["u-1"].Value != "5" {
			t.Errorf("stored = version %d votes %+v", got.Version, got.Votes)
		}
	})

	t.Run("stale update is rejected", func(t *testing.T) {
		s, _ := repo.GetByID(ctx, first.ID)
		stale := s.Version - 1
		if _, err := s.CastVote(domain.Identity{ID: "u-2", Name: "Two"}, "8", now); err != nil {
			t.Fatalf("CastVote: %v", err)
		}
		if err := repo.Update(ctx, s, stale); !errors.Is(err, domain.ErrVersionConflict) {
			t.Errorf("Update err = %v, want ErrVersionConflict", err)
		}
	})

	t.Run("stored copy is isolated", func(t *testing.T) {
		s, _ := repo.GetByID(ctx, first.ID)
		s.Votes["u-x"] = domain.Vote{Value: "13"}
		again, _ := repo.GetByID(ctx, first.ID)
		if _, ok := again.Votes["u-x"]; ok {
			t.Error("mutating a returned session leaked into the store")
		}
	})

	t.Run("replace supersedes atomically", func(t *testing.T) {
		old, _ := repo.GetByID(ctx, first.ID)
		prev := old.Version
		if err := old.Supersede(now); err != nil {
			t.Fatalf("Supersede: %v", err)
		}
		next := newSession(t, team, now.Add(time.Second))
		if err := repo.Replace(ctx, old, prev, next); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		active, _ := repo.GetActiveByTeam(ctx, team)
		if active == nil || active.ID != next.ID {
			t.Errorf("active = %+v, want %s", active, next.ID)
		}
		list, err := repo.ListByTeam(ctx, team, 10)
		if err != nil {
			t.Fatalf("ListByTeam: %v", err)
		}
		if len(list) != 2 || list[0].ID != next.ID || !list[1].Superseded {
			t.Errorf("list = %d sessions, want newest first with superseded predecessor", len(list))
		}
	})

	t.Run("list limit", func(t *testing.T) {
		list, _ := repo.ListByTeam(ctx, team, 1)
		if len(list) != 1 {
			t.Errorf("len = %d, want 1", len(list))
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryContract(t, NewMemoryRepository())
}

func TestMemoryRepository_UpdateMissing(t *testing.T) {
	repo := NewMemoryRepository()
	s := newSession(t, "team-1", time.Now())
	if err := repo.Update(context.Background(), s, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_CompletedAllowsNewSession(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()
	s := newSession(t, "team-1", now)
	_ = repo.Create(ctx, s)

	prev := s.Version
	_ = s.StartVoting(creator, now)
	_, _ = s.CastVote(creator, "3", now)
	_ = s.Reveal(creator, now)
	_ = s.Complete(creator, "3", now)
	if err := repo.Update(ctx, s, prev); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := repo.Create(ctx, newSession(t, "team-1", now)); err != nil {
		t.Errorf("Create after completion: %v", err)
	}
}
