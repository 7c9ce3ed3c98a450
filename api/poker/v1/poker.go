// Package pokerv1 defines the planning-poker wire contract: the poker.v1.PokerService command
// channel and the event and frame shapes of the WebSocket broadcast channel.
package pokerv1

import "time"

// Session statuses as they appear on the wire.
const (
	StatusWaiting   = "WAITING"
	StatusVoting    = "VOTING"
	StatusRevealed  = "REVEALED"
	StatusCompleted = "COMPLETED"
)

// ErrorInfoDomain is the google.rpc.ErrorInfo domain attached to every poker error status.
const ErrorInfoDomain = "poker"

// Error reasons shared by gRPC ErrorInfo details and WebSocket ERROR events.
const (
	ReasonAuthentication    = "AUTHENTICATION"
	ReasonAuthorization     = "AUTHORIZATION"
	ReasonInvalidState      = "INVALID_STATE"
	ReasonInvalidTransition = "INVALID_TRANSITION"
	ReasonInvalidValue      = "INVALID_VALUE"
	ReasonInvalidArgument   = "INVALID_ARGUMENT"
	ReasonConflict          = "CONFLICT"
	ReasonNotFound          = "NOT_FOUND"
	ReasonTransport         = "TRANSPORT"
	ReasonInternal          = "INTERNAL"
	// ReasonRateLimited is only sent on the broadcast channel, right before the server closes it.
	ReasonRateLimited = "RATE_LIMITED"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Vote struct {
	User       User      `json:"user"`
	VoteValue  string    `json:"voteValue"`
	IsRevealed bool      `json:"isRevealed"`
	CastAt     time.Time `json:"castAt"`
}

// Summary is the aggregate of a revealed round. Nearest is empty when no numeric vote was cast.
type Summary struct {
	Average      float64 `json:"average"`
	Nearest      string  `json:"nearest,omitempty"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	NumericVotes int     `json:"numericVotes"`
	TotalVotes   int     `json:"totalVotes"`
}

type Session struct {
	ID               string    `json:"id"`
	TeamID           string    `json:"teamId"`
	StoryTitle       string    `json:"storyTitle"`
	StoryDescription string    `json:"storyDescription"`
	Status           string    `json:"status"`
	CreatedBy        User      `json:"createdBy"`
	Votes            []Vote    `json:"votes"`
	FinalEstimate    string    `json:"finalEstimate,omitempty"`
	Scale            []string  `json:"scale"`
	Superseded       bool      `json:"superseded,omitempty"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Summary          *Summary  `json:"summary,omitempty"`
}

func (x *Session) GetId() string {
	if x != nil {
		return x.ID
	}
	return ""
}

func (x *Session) GetVersion() int64 {
	if x != nil {
		return x.Version
	}
	return 0
}

type CreateSessionRequest struct {
	TeamID           string `json:"teamId"`
	StoryTitle       string `json:"storyTitle"`
	StoryDescription string `json:"storyDescription"`
	CommandID        string `json:"commandId,omitempty"`
}

type StartVotingRequest struct {
	SessionID string `json:"sessionId"`
	CommandID string `json:"commandId,omitempty"`
}

type CastVoteRequest struct {
	SessionID string `json:"sessionId"`
	VoteValue string `json:"voteValue"`
	CommandID string `json:"commandId,omitempty"`
}

type RevealVotesRequest struct {
	SessionID string `json:"sessionId"`
	CommandID string `json:"commandId,omitempty"`
}

type CompleteSessionRequest struct {
	SessionID     string `json:"sessionId"`
	FinalEstimate string `json:"finalEstimate"`
	CommandID     string `json:"commandId,omitempty"`
}

type GetActiveSessionRequest struct {
	TeamID string `json:"teamId"`
}

// GetActiveSessionResponse carries a nil Session when the team has no active round.
type GetActiveSessionResponse struct {
	Session *Session `json:"session,omitempty"`
}

type GetSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type ListTeamSessionsRequest struct {
	TeamID string `json:"teamId"`
	Limit  int32  `json:"limit,omitempty"`
}

type ListTeamSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

func (x *CreateSessionRequest) GetCommandId() string {
	if x != nil {
		return x.CommandID
	}
	return ""
}

func (x *CreateSessionRequest) GetTeamId() string {
	if x != nil {
		return x.TeamID
	}
	return ""
}

func (x *StartVotingRequest) GetCommandId() string {
	if x != nil {
		return x.CommandID
	}
	return ""
}

func (x *CastVoteRequest) GetCommandId() string {
	if x != nil {
		return x.CommandID
	}
	return ""
}

func (x *RevealVotesRequest) GetCommandId() string {
	if x != nil {
		return x.CommandID
	}
	return ""
}

func (x *CompleteSessionRequest) GetCommandId() string {
	if x != nil {
		return x.CommandID
	}
	return ""
}

func (x *GetActiveSessionRequest) GetTeamId() string {
	if x != nil {
		return x.TeamID
	}
	return ""
}

func (x *ListTeamSessionsRequest) GetTeamId() string {
	if x != nil {
		return x.TeamID
	}
	return ""
}
