package domain

import "errors"

// Command errors. Handlers translate them to gRPC codes and WebSocket ERROR codes; callers match with errors.Is.
var (
	ErrAuthentication    = errors.New("authentication required")
	ErrAuthorization     = errors.New("not permitted")
	ErrInvalidState      = errors.New("invalid session state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidValue      = errors.New("vote value not in scale")
	ErrConflict          = errors.New("team already has an active session")
	ErrTransport         = errors.New("transport failure")
	ErrNotFound          = errors.New("session not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrVersionConflict   = errors.New("session was modified concurrently")
)
