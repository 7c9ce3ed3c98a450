package engine

import "context"

// Actions a principal can ask the authorizer about.
const (
	ActionCreateSession   = "create_session"
	ActionStartVoting     = "start_voting"
	ActionCastVote        = "cast_vote"
	ActionRevealVotes     = "reveal_votes"
	ActionCompleteSession = "complete_session"
)

// SessionFacts is what the policy may know about the target session.
type SessionFacts struct {
	ID        string
	TeamID    string
	CreatedBy string
	Status    string
}

// Input is a single authorization question.
type Input struct {
	Action      string
	PrincipalID string
	TeamID      string
	Session     *SessionFacts // nil for create_session
}

// Authorizer decides whether a principal may issue an action.
type Authorizer interface {
	// Authorize returns false when the policy denies. An error means the policy could not be evaluated.
	Authorize(ctx context.Context, in Input) (bool, error)
}
