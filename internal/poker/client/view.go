package client

import (
	pokerv1 "scrumtools/backend/api/poker/v1"
)

// view is the client's local copy of the team room. Callers hold Client.mu.
type view struct {
	session *pokerv1.Session
	roster  []pokerv1.Participant
	// own is the local user's card in ownSession as the server accepted it. Broadcast snapshots mask
	// it until reveal, and one taken before the vote may not list it at all.
	own        *pokerv1.Vote
	ownSession string
}

// applySession installs s if it is not older than what the view holds. A snapshot of another session
// replaces the current one only when it was created later. While voting is open the local user's
// own card is put back into the snapshot.
func (v *view) applySession(s *pokerv1.Session, me string) bool {
	if s == nil {
		return false
	}
	cur := v.session
	if cur != nil {
		if cur.ID == s.ID && s.Version < cur.Version {
			return false
		}
		if cur.ID != s.ID && s.CreatedAt.Before(cur.CreatedAt) {
			return false
		}
	}
	next := cloneSession(s)
	if v.ownSession != next.ID {
		v.own, v.ownSession = nil, ""
	}
	if next.Status == pokerv1.StatusVoting {
		if mine, ok := findVote(next, me); ok && mine.VoteValue != "" {
			v.recordOwn(next.ID, mine)
		}
		v.restoreOwn(next, me)
	}
	v.session = next
	return true
}

// applyVote sets one voter's card on the current session, last write wins.
func (v *view) applyVote(sessionID string, vote pokerv1.Vote, me string) bool {
	if vote.User.ID == me && vote.VoteValue != "" {
		v.recordOwn(sessionID, vote)
	}
	cur := v.session
	if cur == nil || cur.ID != sessionID {
		return false
	}
	if vote.User.ID == me && vote.VoteValue == "" && !vote.IsRevealed && v.own != nil && v.ownSession == sessionID {
		vote.VoteValue = v.own.VoteValue
	}
	for i := range cur.Votes {
		if cur.Votes[i].User.ID == vote.User.ID {
			cur.Votes[i] = vote
			return true
		}
	}
	cur.Votes = append(cur.Votes, vote)
	return true
}

func (v *view) recordOwn(sessionID string, vote pokerv1.Vote) {
	if v.own != nil && v.ownSession == sessionID && vote.CastAt.Before(v.own.CastAt) {
		return
	}
	v.own = &vote
	v.ownSession = sessionID
}

// restoreOwn fills in the masked own card, or adds it when the snapshot predates it. A session enters
// VOTING once, so a card recorded for it stays valid until reveal.
func (v *view) restoreOwn(s *pokerv1.Session, me string) {
	if v.own == nil || v.ownSession != s.ID {
		return
	}
	for i := range s.Votes {
		if s.Votes[i].User.ID != me {
			continue
		}
		if s.Votes[i].VoteValue == "" && !s.Votes[i].IsRevealed {
			s.Votes[i].VoteValue = v.own.VoteValue
		}
		return
	}
	s.Votes = append(s.Votes, *v.own)
}

// dropSession forgets id if it is still the current session.
func (v *view) dropSession(id string) bool {
	if v.session == nil || v.session.ID != id {
		return false
	}
	v.session = nil
	v.own, v.ownSession = nil, ""
	return true
}

func (v *view) setRoster(list []pokerv1.Participant) {
	v.roster = append([]pokerv1.Participant(nil), list...)
}

func findVote(s *pokerv1.Session, userID string) (pokerv1.Vote, bool) {
	for _, vote := range s.Votes {
		if vote.User.ID == userID {
			return vote, true
		}
	}
	return pokerv1.Vote{}, false
}

func cloneSession(s *pokerv1.Session) *pokerv1.Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Votes = append([]pokerv1.Vote(nil), s.Votes...)
	c.Scale = append([]string(nil), s.Scale...)
	if s.Summary != nil {
		sum := *s.Summary
		c.Summary = &sum
	}
	return &c
}
