// Package presence tracks which identities are connected to each team room.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/domain"
)

// Publisher receives roster events. Publish must not block.
type Publisher interface {
	Publish(ctx context.Context, teamID string, ev *pokerv1.Event)
}

// Entry is one identity in a team roster.
type Entry struct {
	Identity       domain.Identity
	ConnectedSince time.Time
}

type member struct {
	identity domain.Identity
	since    time.Time
	conns    map[string]struct{}
}

type room struct {
	members map[string]*member // by identity id
	conns   map[string]string  // connection id -> identity id
}

// Tracker keeps one roster per team. An identity appears once no matter how many connections it has,
// and join/leave events are only published when the roster actually changes.
type Tracker struct {
	mu    sync.Mutex
	rooms map[string]*room
	pub   Publisher
	now   func() time.Time
}

// NewTracker returns a tracker publishing roster changes to pub. pub may be nil.
func NewTracker(pub Publisher) *Tracker {
	return &Tracker{
		rooms: make(map[string]*room),
		pub:   pub,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Join adds connID for id in teamID and returns the roster afterwards.
func (t *Tracker) Join(ctx context.Context, teamID string, id domain.Identity, connID string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.rooms[teamID]
	if r == nil {
		r = &room{members: make(map[string]*member), conns: make(map[string]string)}
		t.rooms[teamID] = r
	}
	if prev, ok := r.conns[connID]; ok && prev != id.ID {
		t.removeConnLocked(ctx, teamID, r, connID)
	}
	m, existed := r.members[id.ID]
	if !existed {
		m = &member{identity: id, since: t.now(), conns: make(map[string]struct{})}
		r.members[id.ID] = m
	}
	m.conns[connID] = struct{}{}
	r.conns[connID] = id.ID
	roster := rosterOf(r)
	if !existed {
		t.publishLocked(ctx, teamID, pokerv1.EventUserJoined, id, roster)
	}
	return roster
}

// Leave removes id and all of its connections from teamID.
func (t *Tracker) Leave(ctx context.Context, teamID string, id domain.Identity) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.rooms[teamID]
	if r == nil {
		return nil
	}
	m, ok := r.members[id.ID]
	if !ok {
		return rosterOf(r)
	}
	for c := range m.conns {
		delete(r.conns, c)
	}
	delete(r.members, id.ID)
	roster := rosterOf(r)
	t.publishLocked(ctx, teamID, pokerv1.EventUserLeft, m.identity, roster)
	t.gcLocked(teamID, r)
	return roster
}

// Disconnect drops connID from teamID. The identity leaves the roster once its last connection is gone.
func (t *Tracker) Disconnect(ctx context.Context, teamID, connID string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.rooms[teamID]
	if r == nil {
		return nil
	}
	t.removeConnLocked(ctx, teamID, r, connID)
	roster := rosterOf(r)
	t.gcLocked(teamID, r)
	return roster
}

// Roster returns the identities currently in teamID ordered by connection time.
func (t *Tracker) Roster(teamID string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.rooms[teamID]
	if r == nil {
		return nil
	}
	return rosterOf(r)
}

func (t *Tracker) removeConnLocked(ctx context.Context, teamID string, r *room, connID string) {
	idID, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	m := r.members[idID]
	if m == nil {
		return
	}
	delete(m.conns, connID)
	if len(m.conns) > 0 {
		return
	}
	delete(r.members, idID)
	t.publishLocked(ctx, teamID, pokerv1.EventUserLeft, m.identity, rosterOf(r))
}

func (t *Tracker) gcLocked(teamID string, r *room) {
	if len(r.members) == 0 && len(r.conns) == 0 {
		delete(t.rooms, teamID)
	}
}

func (t *Tracker) publishLocked(ctx context.Context, teamID, eventType string, id domain.Identity, roster []Entry) {
	if t.pub == nil {
		return
	}
	now := t.now()
	t.pub.Publish(ctx, teamID, &pokerv1.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TeamID:    teamID,
		UserID:    id.ID,
		UserName:  id.Name,
		Timestamp: now,
	})
	t.pub.Publish(ctx, teamID, StatusEvent(teamID, roster))
}

// StatusEvent builds a CONNECTION_STATUS event carrying roster.
func StatusEvent(teamID string, roster []Entry) *pokerv1.Event {
	return &pokerv1.Event{
		ID:             uuid.NewString(),
		Type:           pokerv1.EventConnectionStatus,
		TeamID:         teamID,
		ConnectedUsers: Participants(roster),
		Timestamp:      time.Now().UTC(),
	}
}

// Participants converts roster entries to their wire shape.
func Participants(roster []Entry) []pokerv1.Participant {
	out := make([]pokerv1.Participant, len(roster))
	for i, e := range roster {
		out[i] = pokerv1.Participant{
			User:           pokerv1.User{ID: e.Identity.ID, Name: e.Identity.Name},
			ConnectedSince: e.ConnectedSince,
		}
	}
	return out
}

func rosterOf(r *room) []Entry {
	out := make([]Entry, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, Entry{Identity: m.identity, ConnectedSince: m.since})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedSince.Equal(out[j].ConnectedSince) {
			return out[i].ConnectedSince.Before(out[j].ConnectedSince)
		}
		return out[i].Identity.ID < out[j].Identity.ID
	})
	return out
}
