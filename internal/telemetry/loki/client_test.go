package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestPushEventJSON_Labels(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL+"/", nil)
	raw := []byte(`{"teamId":"team 1","eventType":"cast_vote","source":"gateway","createdAt":"2026-03-01T10:00:00Z"}`)
	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	s := got.Streams[0]
	want := map[string]string{"job": Job, "team_id": "team_1", "event_type": "cast_vote", "source": "gateway"}
	for k, v := range want {
		if s.Stream[k] != v {
			t.Errorf("label %q = %q, want %q", k, s.Stream[k], v)
		}
	}
	wantTS := strconv.FormatInt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).UnixNano(), 10)
	if s.Values[0][0] != wantTS || s.Values[0][1] != string(raw) {
		t.Errorf("values = %v", s.Values)
	}
}

func TestPushEventJSON_RawFallback(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	if err := NewClient(srv.URL, nil).PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if l := got.Streams[0].Stream; len(l) != 1 || l["job"] != Job {
		t.Errorf("labels = %v, want job only", l)
	}
}

func TestPushEvent_Non2xx(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	if err := NewClient(srv.URL, nil).PushEvent(context.Background(), time.Now(), "x", nil); err == nil {
		t.Error("expected error for 400")
	}
}

func TestPushEvent_EmptyURL(t *testing.T) {
	if err := NewClient("", nil).PushEvent(context.Background(), time.Now(), "x", nil); err == nil {
		t.Error("expected error for empty base URL")
	}
}
