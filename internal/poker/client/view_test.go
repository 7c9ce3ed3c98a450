package client

import (
	"testing"
	"time"

	pokerv1 "scrumtools/backend/api/poker/v1"
)

func snapshot(id string, version int64, created time.Time, votes ...pokerv1.Vote) *pokerv1.Session {
	return &pokerv1.Session{ID: id, TeamID: "t1", Status: pokerv1.StatusVoting, Version: version, CreatedAt: created, Votes: votes}
}

func TestView_ApplySessionVersionGate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var v view
	if !v.applySession(snapshot("s1", 3, t0), "me") {
		t.Fatal("first snapshot not applied")
	}
	if v.applySession(snapshot("s1", 2, t0), "me") {
		t.Error("older version applied")
	}
	if !v.applySession(snapshot("s1", 3, t0), "me") {
		t.Error("equal version rejected")
	}
	if v.applySession(snapshot("s0", 9, t0.Add(-time.Minute)), "me") {
		t.Error("snapshot of an older session replaced the current one")
	}
	if !v.applySession(snapshot("s2", 1, t0.Add(time.Minute)), "me") {
		t.Error("newer session rejected")
	}
	if v.session.ID != "s2" {
		t.Errorf("session = %s, want s2", v.session.ID)
	}
}

func TestView_KeepsOwnVoteValueWhenMasked(t *testing.T) {
	t0 := time.Now()
	me := pokerv1.User{ID: "me"}
	other := pokerv1.User{ID: "other"}
	var v view
	v.applySession(snapshot("s1", 3, t0, pokerv1.Vote{User: me, VoteValue: "5"}), "me")

	v.applySession(snapshot("s1", 4, t0, pokerv1.Vote{User: me}, pokerv1.Vote{User: other}), "me")
	own, _ := findVote(v.session, "me")
	if own.VoteValue != "5" {
		t.Errorf("own vote = %q, want 5 kept through masked snapshot", own.VoteValue)
	}

	v.applyVote("s1", pokerv1.Vote{User: me}, "me")
	own, _ = findVote(v.session, "me")
	if own.VoteValue != "5" {
		t.Errorf("own vote = %q, want 5 kept through masked vote event", own.VoteValue)
	}

	revealed := snapshot("s1", 5, t0, pokerv1.Vote{User: me, VoteValue: "8", IsRevealed: true})
	revealed.Status = pokerv1.StatusRevealed
	v.applySession(revealed, "me")
	own, _ = findVote(v.session, "me")
	if own.VoteValue != "8" {
		t.Errorf("own vote after reveal = %q, want server value 8", own.VoteValue)
	}
}

func TestView_OwnVoteSurvivesSnapshotTakenBeforeIt(t *testing.T) {
	t0 := time.Now()
	me := pokerv1.User{ID: "me"}
	other := pokerv1.User{ID: "other"}
	var v view
	v.applySession(snapshot("s1", 3, t0), "me")
	// CastVote response: carries the value but no session version
	v.applyVote("s1", pokerv1.Vote{User: me, VoteValue: "8", CastAt: t0.Add(time.Second)}, "me")

	// the other voter's VOTE_CAST snapshot was committed before our vote and has the same version
	if !v.applySession(snapshot("s1", 3, t0, pokerv1.Vote{User: other}), "me") {
		t.Fatal("snapshot rejected")
	}
	own, ok := findVote(v.session, "me")
	if !ok || own.VoteValue != "8" {
		t.Errorf("own vote = %+v (present %v), want 8 restored", own, ok)
	}
	if len(v.session.Votes) != 2 {
		t.Errorf("votes = %+v, want both voters", v.session.Votes)
	}

	v.applySession(snapshot("s1", 5, t0, pokerv1.Vote{User: other}, pokerv1.Vote{User: me}), "me")
	if own, _ := findVote(v.session, "me"); own.VoteValue != "8" {
		t.Errorf("own vote after later masked snapshot = %q, want 8", own.VoteValue)
	}

	v.applySession(snapshot("s2", 1, t0.Add(time.Minute), pokerv1.Vote{User: me}), "me")
	if own, _ := findVote(v.session, "me"); own.VoteValue != "" {
		t.Errorf("own vote in next session = %q, want masked value left alone", own.VoteValue)
	}
}

func TestView_ApplyVoteLastWriteWins(t *testing.T) {
	var v view
	v.applySession(snapshot("s1", 1, time.Now()), "me")
	if v.applyVote("other", pokerv1.Vote{User: pokerv1.User{ID: "a"}}, "me") {
		t.Error("vote for another session applied")
	}
	v.applyVote("s1", pokerv1.Vote{User: pokerv1.User{ID: "a"}, VoteValue: "3", IsRevealed: true}, "me")
	v.applyVote("s1", pokerv1.Vote{User: pokerv1.User{ID: "a"}, VoteValue: "8", IsRevealed: true}, "me")
	if len(v.session.Votes) != 1 || v.session.Votes[0].VoteValue != "8" {
		t.Errorf("votes = %+v, want one vote of 8", v.session.Votes)
	}
}

func TestClient_HandleEventDedupesByID(t *testing.T) {
	c, err := New(Config{TeamID: "t1", WSURL: "ws://x/ws"}, blockingRPC{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	roster := []pokerv1.Participant{{User: pokerv1.User{ID: "a"}}}
	c.handleEvent(pokerv1.Event{ID: "e1", Type: pokerv1.EventConnectionStatus, ConnectedUsers: roster})
	c.handleEvent(pokerv1.Event{ID: "e1", Type: pokerv1.EventConnectionStatus})
	if got := c.Participants(); len(got) != 1 {
		t.Errorf("roster = %+v, want duplicate event ignored", got)
	}
	select {
	case <-c.Changes():
	default:
		t.Error("no change signalled")
	}
}

func TestView_DropSession(t *testing.T) {
	var v view
	v.applySession(snapshot("s1", 1, time.Now(), pokerv1.Vote{User: pokerv1.User{ID: "me"}, VoteValue: "3"}), "me")
	if v.dropSession("s2") {
		t.Error("dropped a session the view does not hold")
	}
	if !v.dropSession("s1") || v.session != nil || v.own != nil {
		t.Errorf("view after drop = %+v, want empty", v)
	}
}
