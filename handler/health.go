package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kestrelhq/quotagate/coordination"
)

// HealthHandler implements GET /health: 200 unless the Coordination
// Store is unreachable, in which case 503 (spec.md §6).
type HealthHandler struct {
	store coordination.Store
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(store coordination.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := h.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
