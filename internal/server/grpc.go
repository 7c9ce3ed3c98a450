package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	pokerv1 "scrumtools/backend/api/poker/v1"
	pokerhandler "scrumtools/backend/internal/poker/handler"
	"scrumtools/backend/internal/server/interceptors"
	"scrumtools/backend/internal/telemetry"
)

// PublicMethods run without a bearer token.
var PublicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
}

// Deps holds the server's collaborators.
type Deps struct {
	// Tokens validates bearer tokens. If nil every non-public RPC fails with Unauthenticated.
	Tokens interceptors.TokenValidator
	// Poker is the PokerService implementation. If nil, poker RPCs return Unimplemented.
	Poker *pokerhandler.Server
	// Health serves grpc.health.v1.Health. If nil, the health service is not registered.
	Health *health.Server
	// Emitter receives a grpc_request telemetry event per RPC. Optional.
	Emitter telemetry.EventEmitter
}

// NewServer builds a gRPC server with tracing, the interceptor chain and every service registered.
// Interceptor order: auth, then command id, then telemetry (which sees both).
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Tokens, PublicMethods),
			interceptors.CommandIDUnary(),
			interceptors.TelemetryUnary(deps.Emitter, PublicMethods),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers every gRPC service with s.
//
// Service → handler mapping:
//   - poker.v1.PokerService → internal/poker/handler
//   - grpc.health.v1.Health → google.golang.org/grpc/health, status kept current by internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	poker := deps.Poker
	if poker == nil {
		poker = pokerhandler.NewServer(nil)
	}
	pokerv1.RegisterPokerServiceServer(s, poker)
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
}
