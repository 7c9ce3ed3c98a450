package pokerv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const PokerService_ServiceName = "poker.v1.PokerService"

const (
	PokerService_CreateSession_FullMethodName    = "/poker.v1.PokerService/CreateSession"
	PokerService_StartVoting_FullMethodName      = "/poker.v1.PokerService/StartVoting"
	PokerService_CastVote_FullMethodName         = "/poker.v1.PokerService/CastVote"
	PokerService_RevealVotes_FullMethodName      = "/poker.v1.PokerService/RevealVotes"
	PokerService_CompleteSession_FullMethodName  = "/poker.v1.PokerService/CompleteSession"
	PokerService_GetActiveSession_FullMethodName = "/poker.v1.PokerService/GetActiveSession"
	PokerService_GetSession_FullMethodName       = "/poker.v1.PokerService/GetSession"
	PokerService_ListTeamSessions_FullMethodName = "/poker.v1.PokerService/ListTeamSessions"
)

// PokerServiceClient is the client API for PokerService. Calls are sent with the JSON content-subtype.
type PokerServiceClient interface {
	CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*Session, error)
	StartVoting(ctx context.Context, in *StartVotingRequest, opts ...grpc.CallOption) (*Session, error)
	CastVote(ctx context.Context, in *CastVoteRequest, opts ...grpc.CallOption) (*Vote, error)
	RevealVotes(ctx context.Context, in *RevealVotesRequest, opts ...grpc.CallOption) (*Session, error)
	CompleteSession(ctx context.Context, in *CompleteSessionRequest, opts ...grpc.CallOption) (*Session, error)
	GetActiveSession(ctx context.Context, in *GetActiveSessionRequest, opts ...grpc.CallOption) (*GetActiveSessionResponse, error)
	GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*Session, error)
	ListTeamSessions(ctx context.Context, in *ListTeamSessionsRequest, opts ...grpc.CallOption) (*ListTeamSessionsResponse, error)
}

type pokerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPokerServiceClient(cc grpc.ClientConnInterface) PokerServiceClient {
	return &pokerServiceClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *pokerServiceClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*Session, error) {
	out := new(Session)
	err := c.cc.Invoke(ctx, PokerService_CreateSession_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pokerServiceClient) StartVoting(ctx context.Context, in *StartVotingRequest, opts ...grpc.CallOption) (*Session, error) {
	out := new(Session)
	err := c.cc.Invoke(ctx, PokerService_StartVoting_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pokerServiceClient) CastVote(ctx context.Context, in *CastVoteRequest, opts ...grpc.CallOption) (*Vote, error) {
	out := new(Vote)
	err := c.cc.Invoke(ctx, PokerService_CastVote_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pokerServiceClient) RevealVotes(ctx context.Context, in *RevealVotesRequest, opts ...grpc.CallOption) (*Session, error) {
	out := new(Session)
	err := c.cc.Invoke(ctx, PokerService_RevealVotes_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pokerServiceClient) CompleteSession(ctx context.Context, in *CompleteSessionRequest, opts ...grpc.CallOption) (*Session, error) {
	out := new(Session)
	err := c.cc.Invoke(ctx, PokerService_CompleteSession_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pokerServiceClient) GetActiveSession(ctx context.Context, in *GetActiveSessionRequest, opts ...grpc.CallOption) (*GetActiveSessionResponse, error) {
	out := new(GetActiveSessionResponse)
	err := c.cc.Invoke(ctx, PokerService_GetActiveSession_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pokerServiceClient) GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*Session, error) {
	out := new(Session)
	err := c.cc.Invoke(ctx, PokerService_GetSession_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pokerServiceClient) ListTeamSessions(ctx context.Context, in *ListTeamSessionsRequest, opts ...grpc.CallOption) (*ListTeamSessionsResponse, error) {
	out := new(ListTeamSessionsResponse)
	err := c.cc.Invoke(ctx, PokerService_ListTeamSessions_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PokerServiceServer is the server API for PokerService.
type PokerServiceServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*Session, error)
	StartVoting(context.Context, *StartVotingRequest) (*Session, error)
	CastVote(context.Context, *CastVoteRequest) (*Vote, error)
	RevealVotes(context.Context, *RevealVotesRequest) (*Session, error)
	CompleteSession(context.Context, *CompleteSessionRequest) (*Session, error)
	GetActiveSession(context.Context, *GetActiveSessionRequest) (*GetActiveSessionResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*Session, error)
	ListTeamSessions(context.Context, *ListTeamSessionsRequest) (*ListTeamSessionsResponse, error)
}

// UnimplementedPokerServiceServer can be embedded to have forward compatible implementations.
type UnimplementedPokerServiceServer struct{}

func (UnimplementedPokerServiceServer) CreateSession(context.Context, *CreateSessionRequest) (*Session, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateSession not implemented")
}

func (UnimplementedPokerServiceServer) StartVoting(context.Context, *StartVotingRequest) (*Session, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StartVoting not implemented")
}

func (UnimplementedPokerServiceServer) CastVote(context.Context, *CastVoteRequest) (*Vote, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CastVote not implemented")
}

func (UnimplementedPokerServiceServer) RevealVotes(context.Context, *RevealVotesRequest) (*Session, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RevealVotes not implemented")
}

func (UnimplementedPokerServiceServer) CompleteSession(context.Context, *CompleteSessionRequest) (*Session, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CompleteSession not implemented")
}

func (UnimplementedPokerServiceServer) GetActiveSession(context.Context, *GetActiveSessionRequest) (*GetActiveSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetActiveSession not implemented")
}

func (UnimplementedPokerServiceServer) GetSession(context.Context, *GetSessionRequest) (*Session, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetSession not implemented")
}

func (UnimplementedPokerServiceServer) ListTeamSessions(context.Context, *ListTeamSessionsRequest) (*ListTeamSessionsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListTeamSessions not implemented")
}

func RegisterPokerServiceServer(s grpc.ServiceRegistrar, srv PokerServiceServer) {
	s.RegisterService(&PokerService_ServiceDesc, srv)
}

func _PokerService_CreateSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).CreateSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_CreateSession_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).CreateSession(ctx, req.(*CreateSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PokerService_StartVoting_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartVotingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).StartVoting(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_StartVoting_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).StartVoting(ctx, req.(*StartVotingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PokerService_CastVote_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CastVoteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).CastVote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_CastVote_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).CastVote(ctx, req.(*CastVoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PokerService_RevealVotes_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RevealVotesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).RevealVotes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_RevealVotes_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).RevealVotes(ctx, req.(*RevealVotesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PokerService_CompleteSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CompleteSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).CompleteSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_CompleteSession_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).CompleteSession(ctx, req.(*CompleteSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PokerService_GetActiveSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetActiveSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).GetActiveSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_GetActiveSession_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).GetActiveSession(ctx, req.(*GetActiveSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PokerService_GetSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).GetSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_GetSession_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).GetSession(ctx, req.(*GetSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PokerService_ListTeamSessions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListTeamSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PokerServiceServer).ListTeamSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PokerService_ListTeamSessions_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PokerServiceServer).ListTeamSessions(ctx, req.(*ListTeamSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// PokerService_ServiceDesc is the grpc.ServiceDesc for PokerService.
var PokerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: PokerService_ServiceName,
	HandlerType: (*PokerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateSession",
			Handler:    _PokerService_CreateSession_Handler,
		},
		{
			MethodName: "StartVoting",
			Handler:    _PokerService_StartVoting_Handler,
		},
		{
			MethodName: "CastVote",
			Handler:    _PokerService_CastVote_Handler,
		},
		{
			MethodName: "RevealVotes",
			Handler:    _PokerService_RevealVotes_Handler,
		},
		{
			MethodName: "CompleteSession",
			Handler:    _PokerService_CompleteSession_Handler,
		},
		{
			MethodName: "GetActiveSession",
			Handler:    _PokerService_GetActiveSession_Handler,
		},
		{
			MethodName: "GetSession",
			Handler:    _PokerService_GetSession_Handler,
		},
		{
			MethodName: "ListTeamSessions",
			Handler:    _PokerService_ListTeamSessions_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "poker/v1/poker.proto",
}
