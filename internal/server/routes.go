package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CheerChen/konakore/internal/schedule"
)

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(scheduleSvc *schedule.Service) http.Handler {
	return newMux(scheduleSvc)
}

func newMux(scheduleSvc *schedule.Service) http.Handler {
	h := &handler{
		scheduleSvc: scheduleSvc,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/jobs", h.listJobs)
	mux.HandleFunc("GET /api/v1/jobs/{name}", h.getJob)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
