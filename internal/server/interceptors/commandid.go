package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// CommandIDMetadataKey carries the idempotency key when the request body has none.
const CommandIDMetadataKey = "x-command-id"

type commandIDCarrier interface {
	GetCommandId() string
}

// CommandIDUnary puts the request's command id in context. A commandId field on the request wins
// over the x-command-id metadata value.
func CommandIDUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		id := ""
		if c, ok := req.(commandIDCarrier); ok {
			id = strings.TrimSpace(c.GetCommandId())
		}
		if id == "" {
			if md, ok := metadata.FromIncomingContext(ctx); ok {
				if vals := md.Get(CommandIDMetadataKey); len(vals) > 0 {
					id = strings.TrimSpace(vals[0])
				}
			}
		}
		return handler(WithCommandID(ctx, id), req)
	}
}
