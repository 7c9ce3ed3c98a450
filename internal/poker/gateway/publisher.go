package gateway

import (
	"context"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/projection"
	"scrumtools/backend/internal/poker/service"
	"scrumtools/backend/internal/server/interceptors"
)

// Publisher delivers an event to a team room. broadcast.Hub implements it.
type Publisher interface {
	Publish(ctx context.Context, teamID string, ev *pokerv1.Event)
}

var opEvents = map[service.Op]string{
	service.OpCreateSession:   pokerv1.EventSessionCreated,
	service.OpStartVoting:     pokerv1.EventVotingStarted,
	service.OpCastVote:        pokerv1.EventVoteCast,
	service.OpRevealVotes:     pokerv1.EventVotesRevealed,
	service.OpCompleteSession: pokerv1.EventSessionCompleted,
}

// SessionPublisher turns applied commands into room events. It is the service's Notifier.
type SessionPublisher struct {
	pub Publisher
}

func NewSessionPublisher(pub Publisher) *SessionPublisher {
	return &SessionPublisher{pub: pub}
}

// Committed publishes the event for r. A superseded session is announced as SESSION_UPDATED before
// the new session's SESSION_CREATED. Vote values stay masked until reveal.
func (p *SessionPublisher) Committed(ctx context.Context, r service.Result) {
	if p.pub == nil || r.Session == nil {
		return
	}
	eventType, ok := opEvents[r.Op]
	if !ok {
		return
	}
	cmdID := interceptors.GetCommandID(ctx)
	if r.Superseded != nil {
		p.pub.Publish(ctx, r.Superseded.TeamID, projection.SessionEvent(pokerv1.EventSessionUpdated, r.Superseded))
	}
	ev := projection.SessionEvent(eventType, r.Session)
	ev.CommandID = cmdID
	if id, ok := interceptors.GetIdentity(ctx); ok {
		ev.UserID = id.ID
		ev.UserName = id.Name
	}
	if r.Op == service.OpCastVote && r.Vote != nil {
		ev.Vote = projection.Vote(r.Session, *r.Vote, "")
	}
	p.pub.Publish(ctx, r.Session.TeamID, ev)
}
