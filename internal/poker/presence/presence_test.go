package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pokerv1.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, teamID string, ev *pokerv1.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

var (
	ann = domain.Identity{ID: "u-ann", Name: "Ann"}
	ben = domain.Identity{ID: "u-ben", Name: "Ben"}
)

func newTracker(pub Publisher) *Tracker {
	tr := NewTracker(pub)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var n int
	tr.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return tr
}

func TestJoin_DuplicateConnectionsKeepOneEntry(t *testing.T) {
	pub := &recordingPublisher{}
	tr := newTracker(pub)
	ctx := context.Background()

	tr.Join(ctx, "team-1", ann, "c1")
	roster := tr.Join(ctx, "team-1", ann, "c2")
	if len(roster) != 1 {
		t.Fatalf("roster = %d entries, want 1", len(roster))
	}
	got := pub.types()
	want := []string{pokerv1.EventUserJoined, pokerv1.EventConnectionStatus}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDisconnect_LastConnectionLeaves(t *testing.T) {
	pub := &recordingPublisher{}
	tr := newTracker(pub)
	ctx := context.Background()
	tr.Join(ctx, "team-1", ann, "c1")
	tr.Join(ctx, "team-1", ann, "c2")
	tr.Join(ctx, "team-1", ben, "c3")

	if roster := tr.Disconnect(ctx, "team-1", "c1"); len(roster) != 2 {
		t.Fatalf("after first tab closes roster = %d, want 2", len(roster))
	}
	before := len(pub.types())
	roster := tr.Disconnect(ctx, "team-1", "c2")
	if len(roster) != 1 || roster[0].Identity.ID != ben.ID {
		t.Fatalf("roster = %+v, want only ben", roster)
	}
	got := pub.types()[before:]
	if len(got) != 2 || got[0] != pokerv1.EventUserLeft || got[1] != pokerv1.EventConnectionStatus {
		t.Errorf("events = %v, want USER_LEFT then CONNECTION_STATUS", got)
	}
}

func TestLeave_DropsAllConnections(t *testing.T) {
	tr := newTracker(nil)
	ctx := context.Background()
	tr.Join(ctx, "team-1", ann, "c1")
	tr.Join(ctx, "team-1", ann, "c2")
	if roster := tr.Leave(ctx, "team-1", ann); len(roster) != 0 {
		t.Fatalf("roster = %d, want 0", len(roster))
	}
	// a late close of a tab that already left must not emit anything or panic
	if roster := tr.Disconnect(ctx, "team-1", "c2"); roster != nil {
		t.Errorf("roster = %+v, want nil for an empty room", roster)
	}
}

func TestRoster_OrderedByConnectionTime(t *testing.T) {
	tr := newTracker(nil)
	ctx := context.Background()
	tr.Join(ctx, "team-1", ben, "c1")
	tr.Join(ctx, "team-1", ann, "c2")
	roster := tr.Roster("team-1")
	if len(roster) != 2 || roster[0].Identity.ID != ben.ID || roster[1].Identity.ID != ann.ID {
		t.Errorf("roster = %+v, want ben then ann", roster)
	}
}

func TestRooms_AreIsolated(t *testing.T) {
	tr := newTracker(nil)
	ctx := context.Background()
	tr.Join(ctx, "team-1", ann, "c1")
	tr.Join(ctx, "team-2", ben, "c2")
	if r := tr.Roster("team-1"); len(r) != 1 || r[0].Identity.ID != ann.ID {
		t.Errorf("team-1 roster = %+v", r)
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	tr := newTracker(&recordingPublisher{})
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := string(rune('a' + i))
			tr.Join(ctx, "team-1", ann, conn)
			tr.Disconnect(ctx, "team-1", conn)
		}(i)
	}
	wg.Wait()
	if r := tr.Roster("team-1"); len(r) != 0 {
		t.Errorf("roster = %+v, want empty", r)
	}
}
