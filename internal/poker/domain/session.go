package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the position of a session in its linear lifecycle.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusVoting    Status = "VOTING"
	StatusRevealed  Status = "REVEALED"
	StatusCompleted Status = "COMPLETED"
)

// Active reports whether the status belongs to a round that is still in progress.
func (s Status) Active() bool {
	switch s {
	case StatusWaiting, StatusVoting, StatusRevealed:
		return true
	}
	return false
}

// Vote is one participant's card for the current round.
type Vote struct {
	Voter  Identity
	Value  string
	CastAt time.Time
}

// Session is one estimation round for a story within a team.
// Transition methods validate every precondition before touching any field,
// so a failed call leaves the session exactly as it was.
type Session struct {
	ID               string
	TeamID           string
	StoryTitle       string
	StoryDescription string
	Status           Status
	CreatedBy        Identity
	Votes            map[string]Vote // keyed by voter id
	FinalEstimate    string
	Scale            Scale
	Superseded       bool
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSession returns a WAITING session at version 1.
func NewSession(id, teamID, title, description string, creator Identity, scale Scale, now time.Time) (*Session, error) {
	title = strings.TrimSpace(title)
	switch {
	case id == "":
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidArgument)
	case strings.TrimSpace(teamID) == "":
		return nil, fmt.Errorf("%w: team id is required", ErrInvalidArgument)
	case title == "":
		return nil, fmt.Errorf("%w: story title is required", ErrInvalidArgument)
	case creator.IsZero():
		return nil, fmt.Errorf("%w: creator is required", ErrInvalidArgument)
	case scale.IsZero():
		return nil, fmt.Errorf("%w: scale is required", ErrInvalidArgument)
	}
	return &Session{
		ID:               id,
		TeamID:           teamID,
		StoryTitle:       title,
		StoryDescription: strings.TrimSpace(description),
		Status:           StatusWaiting,
		CreatedBy:        creator,
		Votes:            map[string]Vote{},
		Scale:            scale,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsActive reports whether the session still blocks a new session for its team.
func (s *Session) IsActive() bool {
	return !s.Superseded && s.Status.Active()
}

// IsRevealed reports whether vote values are visible to everybody.
func (s *Session) IsRevealed() bool {
	return s.Status == StatusRevealed || s.Status == StatusCompleted
}

// StartVoting moves WAITING to VOTING and clears any stale votes. Only the creator may start.
func (s *Session) StartVoting(requester Identity, now time.Time) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	if err := s.checkCreator(requester, "start voting"); err != nil {
		return err
	}
	if s.Status != StatusWaiting {
		return fmt.Errorf("%w: cannot start voting from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusVoting
	s.Votes = map[string]Vote{}
	s.touch(now)
	return nil
}

// CastVote records or replaces voter's vote. It reports false when the vote is identical to the one
// already recorded, in which case nothing changes.
func (s *Session) CastVote(voter Identity, value string, now time.Time) (bool, error) {
	if err := s.checkMutable(); err != nil {
		return false, err
	}
	if voter.IsZero() {
		return false, fmt.Errorf("%w: voter is required", ErrInvalidArgument)
	}
	if s.Status != StatusVoting {
		return false, fmt.Errorf("%w: votes are only accepted while VOTING, session is %s", ErrInvalidState, s.Status)
	}
	if !s.Scale.Contains(value) {
		return false, fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}
	if prev, ok := s.Votes[voter.ID]; ok && prev.Value == value && prev.Voter.Name == voter.Name {
		return false, nil
	}
	if s.Votes == nil {
		s.Votes = map[string]Vote{}
	}
	s.Votes[voter.ID] = Vote{Voter: voter, Value: value, CastAt: now}
	s.touch(now)
	return true, nil
}

// Reveal moves VOTING to REVEALED. Only the creator may reveal and at least one vote must exist.
func (s *Session) Reveal(requester Identity, now time.Time) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	if err := s.checkCreator(requester, "reveal votes"); err != nil {
		return err
	}
	if s.Status != StatusVoting {
		return fmt.Errorf("%w: cannot reveal from %s", ErrInvalidTransition, s.Status)
	}
	if len(s.Votes) == 0 {
		return fmt.Errorf("%w: no votes cast yet", ErrInvalidState)
	}
	s.Status = StatusRevealed
	s.touch(now)
	return nil
}

// Complete moves REVEALED to COMPLETED with the agreed estimate. COMPLETED is terminal.
func (s *Session) Complete(requester Identity, finalEstimate string, now time.Time) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	if err := s.checkCreator(requester, "complete the session"); err != nil {
		return err
	}
	if s.Status != StatusRevealed {
		return fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, s.Status)
	}
	finalEstimate = strings.TrimSpace(finalEstimate)
	if finalEstimate == "" {
		return fmt.Errorf("%w: final estimate is required", ErrInvalidArgument)
	}
	s.Status = StatusCompleted
	s.FinalEstimate = finalEstimate
	s.touch(now)
	return nil
}

// Supersede retires an active session so a newer one can take its place.
func (s *Session) Supersede(now time.Time) error {
	if !s.IsActive() {
		return fmt.Errorf("%w: session %s is not active", ErrInvalidState, s.ID)
	}
	s.Superseded = true
	s.touch(now)
	return nil
}

// VoteList returns the votes ordered by cast time, then voter id.
func (s *Session) VoteList() []Vote {
	out := make([]Vote, 0, len(s.Votes))
	for _, v := range s.Votes {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CastAt.Equal(out[j].CastAt) {
			return out[i].CastAt.Before(out[j].CastAt)
		}
		return out[i].Voter.ID < out[j].Voter.ID
	})
	return out
}

// VoteValues returns the raw vote values in VoteList order.
func (s *Session) VoteValues() []string {
	votes := s.VoteList()
	out := make([]string, len(votes))
	for i, v := range votes {
		out[i] = v.Value
	}
	return out
}

// Clone returns a deep copy. Repositories hand out and store clones only.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Votes = make(map[string]Vote, len(s.Votes))
	for k, v := range s.Votes {
		c.Votes[k] = v
	}
	return &c
}

func (s *Session) checkMutable() error {
	if s.Superseded {
		return fmt.Errorf("%w: session %s was superseded", ErrInvalidState, s.ID)
	}
	if s.Status == StatusCompleted {
		return fmt.Errorf("%w: session %s is completed", ErrInvalidState, s.ID)
	}
	return nil
}

func (s *Session) checkCreator(requester Identity, action string) error {
	if requester.IsZero() || requester.ID != s.CreatedBy.ID {
		return fmt.Errorf("%w: only the session creator can %s", ErrAuthorization, action)
	}
	return nil
}

func (s *Session) touch(now time.Time) {
	s.Version++
	s.UpdatedAt = now
}
