// Package service applies session commands with one writer per team.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"scrumtools/backend/internal/platform/keylock"
	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/repository"
)

// ConflictPolicy decides what creating a session does while the team still has an active one.
type ConflictPolicy string

const (
	// ConflictReject fails the new session with domain.ErrConflict.
	ConflictReject ConflictPolicy = "reject"
	// ConflictSupersede retires the active session and creates the new one in the same write.
	ConflictSupersede ConflictPolicy = "supersede"
)

// ParseConflictPolicy accepts "reject" or "supersede"; empty means reject.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConflictReject, nil
	case ConflictReject, ConflictSupersede:
		return p, nil
	default:
		return "", fmt.Errorf("unknown session conflict policy %q (want reject or supersede)", s)
	}
}

// Op names an applied command. The values double as audit actions and telemetry event types.
type Op string

const (
	OpCreateSession   Op = "create_session"
	OpStartVoting     Op = "start_voting"
	OpCastVote        Op = "cast_vote"
	OpRevealVotes     Op = "reveal_votes"
	OpCompleteSession Op = "complete_session"
)

// Result is the outcome of an applied command. Session is a copy taken right after the mutation.
type Result struct {
	Op         Op
	Session    *domain.Session
	Vote       *domain.Vote
	Changed    bool
	Superseded *domain.Session
}

// Notifier is told about every applied command while the team is still locked,
// so notifications for one team arrive in the order the commands were applied. It must not block.
type Notifier interface {
	Committed(ctx context.Context, r Result)
}

// Option configures a Service.
type Option func(*Service)

func WithScale(s domain.Scale) Option {
	return func(svc *Service) {
		if !s.IsZero() {
			svc.scale = s
		}
	}
}

func WithConflictPolicy(p ConflictPolicy) Option {
	return func(svc *Service) {
		if p != "" {
			svc.policy = p
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(svc *Service) { svc.newID = newID }
}

// Service owns the session state machine for every team.
type Service struct {
	repo     repository.Repository
	scale    domain.Scale
	policy   ConflictPolicy
	notifier Notifier
	locks    *keylock.Mutex
	now      func() time.Time
	newID    func() string
}

// New returns a Service backed by repo. Defaults: default scale, reject policy, no notifier.
func New(repo repository.Repository, opts ...Option) *Service {
	svc := &Service{
		repo:   repo,
		scale:  domain.DefaultScale(),
		policy: ConflictReject,
		locks:  keylock.New(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Scale returns the deck new sessions are created with.
func (s *Service) Scale() domain.Scale {
	return s.scale
}

// Create starts a new WAITING session for teamID.
func (s *Service) Create(ctx context.Context, teamID, title, description string, creator domain.Identity) (Result, error) {
	next, err := domain.NewSession(s.newID(), strings.TrimSpace(teamID), title, description, creator, s.scale, s.now())
	if err != nil {
		return Result{}, err
	}
	unlock := s.locks.Lock(next.TeamID)
	defer unlock()

	active, err := s.repo.GetActiveByTeam(ctx, next.TeamID)
	if err != nil {
		return Result{}, err
	}
	res := Result{Op: OpCreateSession, Changed: true}
	switch {
	case active == nil:
		err = s.repo.Create(ctx, next)
	case s.policy == ConflictSupersede:
		prev := active.Version
		if err := active.Supersede(next.CreatedAt); err != nil {
			return Result{}, err
		}
		err = s.repo.Replace(ctx, active, prev, next)
		res.Superseded = active
	default:
		return Result{}, fmt.Errorf("%w: session %s is %s", domain.ErrConflict, active.ID, active.Status)
	}
	if err != nil {
		return Result{}, err
	}
	res.Session = next.Clone()
	s.notify(ctx, res)
	return res, nil
}

// StartVoting opens voting on sessionID and clears stale votes.
func (s *Service) StartVoting(ctx context.Context, sessionID string, requester domain.Identity) (Result, error) {
	return s.mutate(ctx, sessionID, OpStartVoting, func(sess *domain.Session, now time.Time) (bool, *domain.Vote, error) {
		return true, nil, sess.StartVoting(requester, now)
	})
}

// CastVote records voter's card. Recasting the same card succeeds without changing the session,
// and is still reported to the notifier.
func (s *Service) CastVote(ctx context.Context, sessionID string, voter domain.Identity, value string) (Result, error) {
	return s.mutate(ctx, sessionID, OpCastVote, func(sess *domain.Session, now time.Time) (bool, *domain.Vote, error) {
		changed, err := sess.CastVote(voter, value, now)
		if err != nil {
			return false, nil, err
		}
		v := sess.Votes[voter.ID]
		return changed, &v, nil
	})
}

// Reveal shows every vote of sessionID.
func (s *Service) Reveal(ctx context.Context, sessionID string, requester domain.Identity) (Result, error) {
	return s.mutate(ctx, sessionID, OpRevealVotes, func(sess *domain.Session, now time.Time) (bool, *domain.Vote, error) {
		return true, nil, sess.Reveal(requester, now)
	})
}

// Complete closes sessionID with the agreed estimate.
func (s *Service) Complete(ctx context.Context, sessionID string, requester domain.Identity, finalEstimate string) (Result, error) {
	return s.mutate(ctx, sessionID, OpCompleteSession, func(sess *domain.Session, now time.Time) (bool, *domain.Vote, error) {
		return true, nil, sess.Complete(requester, finalEstimate, now)
	})
}

// Get returns the session or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidArgument)
	}
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, sessionID)
	}
	return sess, nil
}

// Active returns the team's active session, or nil when there is none.
func (s *Service) Active(ctx context.Context, teamID string) (*domain.Session, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("%w: team id is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetActiveByTeam(ctx, teamID)
}

// List returns the team's sessions newest first.
func (s *Service) List(ctx context.Context, teamID string, limit int) ([]*domain.Session, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("%w: team id is required", domain.ErrInvalidArgument)
	}
	return s.repo.ListByTeam(ctx, teamID, limit)
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

type mutation func(sess *domain.Session, now time.Time) (changed bool, vote *domain.Vote, err error)

func (s *Service) mutate(ctx context.Context, sessionID string, op Op, fn mutation) (Result, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	unlock := s.locks.Lock(sess.TeamID)
	defer unlock()

	// re-read under the team lock; the first read only located the team
	if sess, err = s.Get(ctx, sessionID); err != nil {
		return Result{}, err
	}
	prev := sess.Version
	changed, vote, err := fn(sess, s.now())
	if err != nil {
		return Result{}, err
	}
	if changed {
		if err := s.repo.Update(ctx, sess, prev); err != nil {
			return Result{}, err
		}
	}
	res := Result{Op: op, Session: sess.Clone(), Vote: vote, Changed: changed}
	s.notify(ctx, res)
	return res, nil
}

func (s *Service) notify(ctx context.Context, r Result) {
	if s.notifier != nil {
		s.notifier.Committed(ctx, r)
	}
}
