package interceptors

import (
	"context"

	"scrumtools/backend/internal/poker/domain"
)

type contextKey struct{ name string }

var (
	identityKey  = contextKey{"identity"}
	commandIDKey = contextKey{"command_id"}
	clientIPKey  = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the authenticated principal.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the principal from context and true if one was set; otherwise a zero identity, false.
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	v, ok := ctx.Value(identityKey).(domain.Identity)
	if !ok || v.IsZero() {
		return domain.Identity{}, false
	}
	return v, true
}

// GetUserID returns the principal's id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	return id.ID, ok
}

// WithCommandID attaches the client-chosen command id used for idempotency.
func WithCommandID(ctx context.Context, commandID string) context.Context {
	if commandID == "" {
		return ctx
	}
	return context.WithValue(ctx, commandIDKey, commandID)
}

// GetCommandID returns the command id from context, or "".
func GetCommandID(ctx context.Context) string {
	v, _ := ctx.Value(commandIDKey).(string)
	return v
}

// WithClientIP records the caller address for non-gRPC transports (the WebSocket handler).
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}
