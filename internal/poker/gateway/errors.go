package gateway

import (
	"errors"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/domain"
)

var reasons = []struct {
	err    error
	reason string
}{
	{domain.ErrAuthentication, pokerv1.ReasonAuthentication},
	{domain.ErrAuthorization, pokerv1.ReasonAuthorization},
	{domain.ErrInvalidTransition, pokerv1.ReasonInvalidTransition},
	{domain.ErrInvalidState, pokerv1.ReasonInvalidState},
	{domain.ErrInvalidValue, pokerv1.ReasonInvalidValue},
	{domain.ErrInvalidArgument, pokerv1.ReasonInvalidArgument},
	{domain.ErrConflict, pokerv1.ReasonConflict},
	{domain.ErrVersionConflict, pokerv1.ReasonConflict},
	{domain.ErrNotFound, pokerv1.ReasonNotFound},
	{domain.ErrTransport, pokerv1.ReasonTransport},
}

// Reason maps a command error to the reason code shared by gRPC ErrorInfo and WebSocket ERROR events.
// Unknown errors are INTERNAL.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return pokerv1.ReasonInternal
}

// ErrorForReason is the inverse of Reason, used by clients decoding a status or ERROR event.
func ErrorForReason(reason string) error {
	for _, r := range reasons {
		if r.reason == reason {
			return r.err
		}
	}
	return nil
}
