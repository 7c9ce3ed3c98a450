package pokerv1

import "time"

// Event types published on team/{teamId}.
const (
	EventSessionCreated   = "SESSION_CREATED"
	EventSessionUpdated   = "SESSION_UPDATED"
	EventVoteCast         = "VOTE_CAST"
	EventVotesRevealed    = "VOTES_REVEALED"
	EventSessionCompleted = "SESSION_COMPLETED"
	EventVotingStarted    = "VOTING_STARTED"
	EventUserJoined       = "USER_JOINED"
	EventUserLeft         = "USER_LEFT"
	EventError            = "ERROR"
	EventConnectionStatus = "CONNECTION_STATUS"
)

// Frame types a client may send on the broadcast channel.
const (
	FrameJoinRoom        = "JOIN_ROOM"
	FrameLeaveRoom       = "LEAVE_ROOM"
	FrameCastVote        = "CAST_VOTE"
	FrameRevealVotes     = "REVEAL_VOTES"
	FrameStartVoting     = "START_VOTING"
	FrameCompleteSession = "COMPLETE_SESSION"
)

// Topic returns the room name events for teamID are published on.
func Topic(teamID string) string {
	return "team/" + teamID
}

// Event is a server to client message on the broadcast channel.
type Event struct {
	ID             string        `json:"id"`
	Type           string        `json:"type"`
	TeamID         string        `json:"teamId"`
	SessionID      string        `json:"sessionId,omitempty"`
	Session        *Session      `json:"session,omitempty"`
	Vote           *Vote         `json:"vote,omitempty"`
	ConnectedUsers []Participant `json:"connectedUsers,omitempty"`
	UserID         string        `json:"userId,omitempty"`
	UserName       string        `json:"userName,omitempty"`
	Message        string        `json:"message,omitempty"`
	Code           string        `json:"code,omitempty"`
	CommandID      string        `json:"commandId,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Participant is one roster entry in a CONNECTION_STATUS event.
type Participant struct {
	User           User      `json:"user"`
	ConnectedSince time.Time `json:"connectedSince"`
}

// Frame is a client to server message on the broadcast channel. UserID and UserName are informational;
// the server always acts as the identity of the authenticated connection.
type Frame struct {
	Type          string    `json:"type"`
	CommandID     string    `json:"commandId,omitempty"`
	TeamID        string    `json:"teamId"`
	SessionID     string    `json:"sessionId,omitempty"`
	VoteValue     string    `json:"voteValue,omitempty"`
	FinalEstimate string    `json:"finalEstimate,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	UserName      string    `json:"userName,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
