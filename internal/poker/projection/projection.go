// Package projection renders domain sessions into their wire shape, hiding vote values that are not
// yet meant to be seen.
package projection

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/estimate"
)

// Session renders s for viewerID. Before reveal every vote value is blanked except the viewer's own;
// pass an empty viewerID for broadcast snapshots. A summary is attached once votes are revealed.
func Session(s *domain.Session, viewerID string) *pokerv1.Session {
	if s == nil {
		return nil
	}
	out := &pokerv1.Session{
		ID:               s.ID,
		TeamID:           s.TeamID,
		StoryTitle:       s.StoryTitle,
		StoryDescription: s.StoryDescription,
		Status:           string(s.Status),
		CreatedBy:        User(s.CreatedBy),
		Votes:            make([]pokerv1.Vote, 0, len(s.Votes)),
		FinalEstimate:    s.FinalEstimate,
		Scale:            s.Scale.Values(),
		Superseded:       s.Superseded,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	for _, v := range s.VoteList() {
		out.Votes = append(out.Votes, *Vote(s, v, viewerID))
	}
	if s.IsRevealed() {
		out.Summary = Summary(estimate.ForSession(s))
	}
	return out
}

// Vote renders one vote of s for viewerID.
func Vote(s *domain.Session, v domain.Vote, viewerID string) *pokerv1.Vote {
	out := &pokerv1.Vote{
		User:       User(v.Voter),
		IsRevealed: s.IsRevealed(),
		CastAt:     v.CastAt,
	}
	if out.IsRevealed || (viewerID != "" && viewerID == v.Voter.ID) {
		out.VoteValue = v.Value
	}
	return out
}

func Summary(sum estimate.Summary) *pokerv1.Summary {
	out := &pokerv1.Summary{
		Average:      sum.Average,
		Min:          sum.Min,
		Max:          sum.Max,
		NumericVotes: sum.NumericCount,
		TotalVotes:   sum.TotalCount,
	}
	if sum.HasNearest {
		out.Nearest = strconv.FormatFloat(sum.Nearest, 'f', -1, 64)
	}
	return out
}

func User(id domain.Identity) pokerv1.User {
	return pokerv1.User{ID: id.ID, Name: id.Name}
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType, teamID string) *pokerv1.Event {
	return &pokerv1.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TeamID:    teamID,
		Timestamp: time.Now().UTC(),
	}
}

// SessionEvent builds a broadcast event carrying a masked snapshot of s.
func SessionEvent(eventType string, s *domain.Session) *pokerv1.Event {
	ev := NewEvent(eventType, s.TeamID)
	ev.SessionID = s.ID
	ev.Session = Session(s, "")
	return ev
}

// ErrorEvent builds the private ERROR event returned to the connection that issued a failed frame.
func ErrorEvent(teamID, commandID, code, message string) *pokerv1.Event {
	ev := NewEvent(pokerv1.EventError, teamID)
	ev.CommandID = commandID
	ev.Code = code
	ev.Message = message
	return ev
}
