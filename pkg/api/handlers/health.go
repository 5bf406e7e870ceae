package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store events.Store
}

// NewHealthHandler creates a health handler. A nil store makes the
// readiness probe fail.
func NewHealthHandler(store events.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Liveness handles GET /health. It succeeds while the process can answer.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "picopot",
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 503 when the event store is missing or its healthcheck fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("event store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.store.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"event_store": "healthy",
		"latency":     time.Since(start).String(),
	}))
}
