package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	pokerv1 "scrumtools/backend/api/poker/v1"
	"scrumtools/backend/internal/poker/domain"
)

func TestStatusError_Mapping(t *testing.T) {
	tests := []struct {
		err        error
		wantCode   codes.Code
		wantReason string
	}{
		{domain.ErrAuthentication, codes.Unauthenticated, pokerv1.ReasonAuthentication},
		{domain.ErrAuthorization, codes.PermissionDenied, pokerv1.ReasonAuthorization},
		{domain.ErrInvalidState, codes.FailedPrecondition, pokerv1.ReasonInvalidState},
		{domain.ErrInvalidTransition, codes.FailedPrecondition, pokerv1.ReasonInvalidTransition},
		{domain.ErrInvalidValue, codes.InvalidArgument, pokerv1.ReasonInvalidValue},
		{domain.ErrInvalidArgument, codes.InvalidArgument, pokerv1.ReasonInvalidArgument},
		{domain.ErrConflict, codes.AlreadyExists, pokerv1.ReasonConflict},
		{domain.ErrVersionConflict, codes.AlreadyExists, pokerv1.ReasonConflict},
		{domain.ErrNotFound, codes.NotFound, pokerv1.ReasonNotFound},
		{domain.ErrTransport, codes.Unavailable, pokerv1.ReasonTransport},
		{errors.New("disk on fire"), codes.Internal, pokerv1.ReasonInternal},
	}
	for _, tt := range tests {
		t.Run(tt.wantReason, func(t *testing.T) {
			st := status.Convert(StatusError(fmt.Errorf("op: %w", tt.err)))
			if st.Code() != tt.wantCode {
				t.Errorf("code = %v, want %v", st.Code(), tt.wantCode)
			}
			var info *errdetails.ErrorInfo
			for _, d := range st.Details() {
				if i, ok := d.(*errdetails.ErrorInfo); ok {
					info = i
				}
			}
			if info == nil {
				t.Fatal("no ErrorInfo detail")
			}
			want := &errdetails.ErrorInfo{Reason: tt.wantReason, Domain: pokerv1.ErrorInfoDomain}
			if !proto.Equal(info, want) {
				t.Errorf("ErrorInfo = %s/%s, want %s/%s", info.Reason, info.Domain, tt.wantReason, pokerv1.ErrorInfoDomain)
			}
		})
	}
}

func TestStatusError_HidesInternalMessage(t *testing.T) {
	st := status.Convert(StatusError(errors.New("pq: password authentication failed")))
	if st.Message() != "internal error" {
		t.Errorf("message = %q, want internal error", st.Message())
	}
}

func TestStatusError_ContextErrors(t *testing.T) {
	if got := status.Code(StatusError(context.DeadlineExceeded)); got != codes.DeadlineExceeded {
		t.Errorf("code = %v, want DeadlineExceeded", got)
	}
	if StatusError(nil) != nil {
		t.Error("StatusError(nil) != nil")
	}
}

func TestErrorFromStatus_RoundTrip(t *testing.T) {
	for _, base := range []error{domain.ErrInvalidState, domain.ErrConflict, domain.ErrNotFound, domain.ErrAuthorization} {
		got := ErrorFromStatus(StatusError(fmt.Errorf("x: %w", base)))
		if !errors.Is(got, base) {
			t.Errorf("ErrorFromStatus lost %v, got %v", base, got)
		}
	}
	if got := ErrorFromStatus(status.Error(codes.Unavailable, "conn refused")); !errors.Is(got, domain.ErrTransport) {
		t.Errorf("Unavailable without detail = %v, want ErrTransport", got)
	}
	if got := ErrorFromStatus(status.Error(codes.Unauthenticated, "expired")); !errors.Is(got, domain.ErrAuthentication) {
		t.Errorf("Unauthenticated without detail = %v, want ErrAuthentication", got)
	}
}

func TestServer_NilGatewayUnimplemented(t *testing.T) {
	s := NewServer(nil)
	_, err := s.GetSession(context.Background(), &pokerv1.GetSessionRequest{SessionID: "x"})
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("code = %v, want Unimplemented", status.Code(err))
	}
}
