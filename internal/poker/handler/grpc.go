// Package handler exposes the gateway on both channels: poker.v1.PokerService over gRPC and the
// team room WebSocket.
package handler

import (
	"context"
	"errors"
	"log"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/domain"
	"scrumtools/backend/internal/poker/gateway"
	"scrumtools/backend/internal/poker/projection"
	"scrumtools/backend/internal/poker/repository"
	"scrumtools/backend/internal/server/interceptors"
)

// Server implements PokerService (gRPC server) on top of the command gateway.
type Server struct {
	pokerv1.UnimplementedPokerServiceServer
	gw *gateway.Gateway
}

// NewServer returns a PokerService server. Pass nil gw for a stub (Unimplemented).
func NewServer(gw *gateway.Gateway) *Server {
	return &Server{gw: gw}
}

func viewer(ctx context.Context) string {
	id, _ := interceptors.GetUserID(ctx)
	return id
}

func (s *Server) CreateSession(ctx context.Context, req *pokerv1.CreateSessionRequest) (*pokerv1.Session, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method CreateSession not implemented")
	}
	res, err := s.gw.CreateSession(ctx, req.TeamID, req.StoryTitle, req.StoryDescription)
	if err != nil {
		return nil, StatusError(err)
	}
	return projection.Session(res.Session, viewer(ctx)), nil
}

func (s *Server) StartVoting(ctx context.Context, req *pokerv1.StartVotingRequest) (*pokerv1.Session, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method StartVoting not implemented")
	}
	res, err := s.gw.StartVoting(ctx, req.SessionID)
	if err != nil {
		return nil, StatusError(err)
	}
	return projection.Session(res.Session, viewer(ctx)), nil
}

// CastVote returns the caller's own vote with its value, even before reveal.
func (s *Server) CastVote(ctx context.Context, req *pokerv1.CastVoteRequest) (*pokerv1.Vote, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method CastVote not implemented")
	}
	res, err := s.gw.CastVote(ctx, req.SessionID, req.VoteValue)
	if err != nil {
		return nil, StatusError(err)
	}
	if res.Vote == nil {
		return nil, status.Error(codes.Internal, "vote missing from result")
	}
	return projection.Vote(res.Session, *res.Vote, viewer(ctx)), nil
}

// RevealVotes returns the revealed session with its summary.
func (s *Server) RevealVotes(ctx context.Context, req *pokerv1.RevealVotesRequest) (*pokerv1.Session, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method RevealVotes not implemented")
	}
	res, err := s.gw.RevealVotes(ctx, req.SessionID)
	if err != nil {
		return nil, StatusError(err)
	}
	return projection.Session(res.Session, viewer(ctx)), nil
}

func (s *Server) CompleteSession(ctx context.Context, req *pokerv1.CompleteSessionRequest) (*pokerv1.Session, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method CompleteSession not implemented")
	}
	res, err := s.gw.CompleteSession(ctx, req.SessionID, req.FinalEstimate)
	if err != nil {
		return nil, StatusError(err)
	}
	return projection.Session(res.Session, viewer(ctx)), nil
}

// GetActiveSession returns an empty response when the team has no active round.
func (s *Server) GetActiveSession(ctx context.Context, req *pokerv1.GetActiveSessionRequest) (*pokerv1.GetActiveSessionResponse, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method GetActiveSession not implemented")
	}
	sess, err := s.gw.ActiveSession(ctx, req.TeamID)
	if err != nil {
		return nil, StatusError(err)
	}
	return &pokerv1.GetActiveSessionResponse{Session: projection.Session(sess, viewer(ctx))}, nil
}

func (s *Server) GetSession(ctx context.Context, req *pokerv1.GetSessionRequest) (*pokerv1.Session, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
	}
	sess, err := s.gw.Session(ctx, req.SessionID)
	if err != nil {
		return nil, StatusError(err)
	}
	return projection.Session(sess, viewer(ctx)), nil
}

func (s *Server) ListTeamSessions(ctx context.Context, req *pokerv1.ListTeamSessionsRequest) (*pokerv1.ListTeamSessionsResponse, error) {
	if s.gw == nil {
		return nil, status.Error(codes.Unimplemented, "method ListTeamSessions not implemented")
	}
	limit := int(req.Limit)
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	list, err := s.gw.TeamSessions(ctx, req.TeamID, limit)
	if err != nil {
		return nil, StatusError(err)
	}
	out := make([]*pokerv1.Session, 0, len(list))
	me := viewer(ctx)
	for _, sess := range list {
		out = append(out, projection.Session(sess, me))
	}
	return &pokerv1.ListTeamSessionsResponse{Sessions: out}, nil
}

var reasonCodes = map[string]codes.Code{
	pokerv1.ReasonAuthentication:    codes.Unauthenticated,
	pokerv1.ReasonAuthorization:     codes.PermissionDenied,
	pokerv1.ReasonInvalidState:      codes.FailedPrecondition,
	pokerv1.ReasonInvalidTransition: codes.FailedPrecondition,
	pokerv1.ReasonInvalidValue:      codes.InvalidArgument,
	pokerv1.ReasonInvalidArgument:   codes.InvalidArgument,
	pokerv1.ReasonConflict:          codes.AlreadyExists,
	pokerv1.ReasonNotFound:          codes.NotFound,
	pokerv1.ReasonTransport:         codes.Unavailable,
}

// StatusError converts a command error to a gRPC status carrying an ErrorInfo with the exact reason.
// Internal errors are logged and returned without their message.
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	reason := gateway.Reason(err)
	code, ok := reasonCodes[reason]
	msg := err.Error()
	if !ok {
		log.Printf("poker: internal error: %v", err)
		code, msg = codes.Internal, "internal error"
	}
	st := status.New(code, msg)
	if withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: pokerv1.ErrorInfoDomain}); derr == nil {
		st = withInfo
	}
	return st.Err()
}

// ErrorFromStatus recovers the command error from a status returned by StatusError.
func ErrorFromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == pokerv1.ErrorInfoDomain {
			if base := gateway.ErrorForReason(info.Reason); base != nil {
				return &reasonError{base: base, msg: st.Message()}
			}
		}
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return &reasonError{base: domain.ErrAuthentication, msg: st.Message()}
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &reasonError{base: domain.ErrTransport, msg: st.Message()}
	}
	return err
}

type reasonError struct {
	base error
	msg  string
}

func (e *reasonError) Error() string { return e.msg }
func (e *reasonError) Unwrap() error { return e.base }
