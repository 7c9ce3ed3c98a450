package domain

import (
	"encoding/json"
	"time"
)

// Sources of telemetry events.
const (
	SourceGateway = "gateway"
	SourceGRPC    = "grpc"
	SourceWS      = "websocket"
)

// Event is one telemetry record about a poker team. JSON field names are what the Loki worker indexes.
type Event struct {
	TeamID    string          `json:"teamId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
