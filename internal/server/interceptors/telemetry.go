package interceptors

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"scrumtools/backend/internal/audit"
	"scrumtools/backend/internal/telemetry"
	"scrumtools/backend/internal/telemetry/domain"
)

// grpcRequestMetadata is the JSON shape stored in Event.Metadata for grpc_request events.
type grpcRequestMetadata struct {
	FullMethod string `json:"full_method"`
	Action     string `json:"action"`
	Resource   string `json:"resource"`
	StatusCode string `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	CommandID  string `json:"command_id,omitempty"`
}

type teamIDCarrier interface {
	GetTeamId() string
}

// TelemetryUnary emits a grpc_request telemetry event after each RPC.
// Best-effort: failures are logged and do not fail the RPC. A nil emitter disables it.
// skipMethods is the set of full method names to not emit (e.g. health checks).
func TelemetryUnary(emitter telemetry.EventEmitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		metaJSON, _ := json.Marshal(grpcRequestMetadata{
			FullMethod: info.FullMethod,
			Action:     ar.Action,
			Resource:   ar.Resource,
			StatusCode: status.Code(err).String(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   ClientIP(ctx),
			CommandID:  GetCommandID(ctx),
		})
		userID, _ := GetUserID(ctx)
		event := &domain.Event{
			UserID:    userID,
			EventType: "grpc_request",
			Source:    domain.SourceGRPC,
			Metadata:  metaJSON,
			CreatedAt: time.Now().UTC(),
		}
		if c, ok := req.(teamIDCarrier); ok {
			event.TeamID = c.GetTeamId()
		}
		telemetry.EmitAsync(emitter, ctx, event)
		return resp, err
	}
}
