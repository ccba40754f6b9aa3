package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/edgestack/internal/api/middleware"
)

// Health serves the liveness and readiness probes.
type Health struct {
	Service string
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service,omitempty"`
	Database  string `json:"database,omitempty"`
}

// Routes returns the /health router.
func (h Health) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleHealth)
	r.Get("/live", h.handleLive)
	r.Get("/ready", h.handleReady)
	return r
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (h Health) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: now(), Service: h.Service})
}

func (h Health) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "alive", Timestamp: now()})
}

func (h Health) handleReady(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err == nil {
		err = store.Ping(r.Context())
	}
	if err != nil {
		middleware.AddError(r.Context(), err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready", Timestamp: now(), Database: "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ready", Timestamp: now(), Database: "connected"})
}
