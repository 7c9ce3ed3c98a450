package audit

import "testing"

func TestParseFullMethod(t *testing.T) {
	tests := []struct {
		fullMethod string
		want       ActionResource
	}{
		{"/poker.v1.PokerService/CastVote", ActionResource{Action: "cast_vote", Resource: "poker"}},
		{"/poker.v1.PokerService/GetActiveSession", ActionResource{Action: "get_active_session", Resource: "poker"}},
		{"/grpc.health.v1.Health/Check", ActionResource{Action: "check", Resource: "health"}},
		{"NoSlash", ActionResource{Action: "unknown", Resource: "unknown"}},
		{"/Method", ActionResource{Action: "method", Resource: "unknown"}},
	}
	for _, tt := range tests {
		if got := ParseFullMethod(tt.fullMethod); got != tt.want {
			t.Errorf("ParseFullMethod(%q) = %+v, want %+v", tt.fullMethod, got, tt.want)
		}
	}
}
