package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jub0bs/fcors"
)

// Probes serves the HTTP liveness and readiness checks.
type Probes interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

// NewRouter mounts the broadcast channel and the probes. The probes get CORS headers for browser
// dashboards; /ws checks Origin during the handshake instead, since CORS does not apply to upgrades.
func NewRouter(ws http.Handler, probes Probes, origins []string) (http.Handler, error) {
	cors, err := newCORS(origins)
	if err != nil {
		return nil, err
	}
	r := mux.NewRouter()
	r.Handle("/ws", ws).Methods(http.MethodGet)
	r.Handle("/healthz", cors(http.HandlerFunc(probes.Healthz))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/readyz", cors(http.HandlerFunc(probes.Readyz))).Methods(http.MethodGet, http.MethodOptions)
	return r, nil
}

func newCORS(origins []string) (func(http.Handler) http.Handler, error) {
	if allowAnyOrigin(origins) {
		return fcors.AllowAccess(
			fcors.FromAnyOrigin(),
			fcors.WithMethods(http.MethodGet),
			fcors.WithRequestHeaders("Authorization"),
		)
	}
	return fcors.AllowAccess(
		fcors.FromOrigins(origins[0], origins[1:]...),
		fcors.WithMethods(http.MethodGet),
		fcors.WithRequestHeaders("Authorization"),
	)
}
