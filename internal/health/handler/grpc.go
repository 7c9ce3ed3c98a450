// Package handler serves liveness and readiness for both channels: /healthz and /readyz on HTTP,
// and the standard grpc.health.v1 status kept in sync from the same checks.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	pokerv1 "scrumtools/backend/api/poker/v1"
)

const checkTimeout = 2 * time.Second

// Pinger reports whether the session store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker reports whether the authorization policy engine can evaluate.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs the readiness checks. Nil dependencies are skipped.
type Checker struct {
	store  Pinger
	policy PolicyChecker
}

// NewChecker returns a Checker over the given store and policy engine.
func NewChecker(store Pinger, policy PolicyChecker) *Checker {
	return &Checker{store: store, policy: policy}
}

// Ready returns the first failing check.
func (c *Checker) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if c.store != nil {
		if err := c.store.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}
	return nil
}

type probeResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Healthz is the liveness probe: the process is up.
func (c *Checker) Healthz(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, probeResponse{Status: "ok"})
}

// Readyz is the readiness probe: 503 when a dependency check fails.
func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := c.Ready(r.Context()); err != nil {
		writeProbe(w, http.StatusServiceUnavailable, probeResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeProbe(w, http.StatusOK, probeResponse{Status: "ok"})
}

func writeProbe(w http.ResponseWriter, code int, body probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Sync sets the gRPC health status of the overall server and of poker.v1.PokerService
// from Ready, once immediately and then every interval until ctx is done.
func (c *Checker) Sync(ctx context.Context, srv *health.Server, interval time.Duration) {
	update := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if err := c.Ready(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("health: not ready: %v", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		srv.SetServingStatus("", st)
		srv.SetServingStatus(pokerv1.PokerService_ServiceName, st)
	}
	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
