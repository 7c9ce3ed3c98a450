package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"scrumtools/backend/internal/poker/domain"
)

const bearerPrefix = "bearer "

// TokenValidator validates an access token and returns the user id and display name.
// *security.TokenProvider implements it.
type TokenValidator interface {
	ValidateAccess(token string) (userID, name string, err error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer token from gRPC metadata
// and puts the principal in context. publicMethods (e.g. the health service) run without a token.
func AuthUnary(tokens TokenValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		id, err := Authenticate(tokens, extractBearer(ctx))
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		return handler(WithIdentity(ctx, id), req)
	}
}

// Authenticate validates a raw bearer token. Shared by the gRPC interceptor and the WebSocket upgrade.
func Authenticate(tokens TokenValidator, token string) (domain.Identity, error) {
	if tokens == nil || token == "" {
		return domain.Identity{}, domain.ErrAuthentication
	}
	userID, name, err := tokens.ValidateAccess(token)
	if err != nil || userID == "" {
		return domain.Identity{}, domain.ErrAuthentication
	}
	return domain.Identity{ID: userID, Name: name}, nil
}

// BearerToken strips the "Bearer " prefix (case-insensitive) from an Authorization value; "" if absent.
func BearerToken(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	return BearerToken(vals[0])
}
