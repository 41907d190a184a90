package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kestrelhq/quotagate/apierr"
	"github.com/kestrelhq/quotagate/apitypes"
	"github.com/kestrelhq/quotagate/coordination"
)

// UsageHandler implements GET /v1/usage/{api_key}: a read-only query
// against the Coordination Store that never mutates any WindowCounter
// (spec.md §6).
type UsageHandler struct {
	store         coordination.Store
	windowSeconds int
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(store coordination.Store, windowSeconds int) *UsageHandler {
	return &UsageHandler{store: store, windowSeconds: windowSeconds}
}

func (h *UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "api_key")
	if key == "" {
		apierr.Write(w, apierr.New(apierr.InvalidRequest, "api_key path segment required"))
		return
	}

	window := time.Duration(h.windowSeconds) * time.Second
	sums, err := h.store.Usage(r.Context(), key, time.Now(), window)
	if err != nil {
		apierr.Write(w, apierr.New(apierr.CoordinationUnavailable, "coordination store unavailable"))
		return
	}

	resp := apitypes.UsageSummary{
		InputTokensUsed:  sums.InputTokens,
		OutputTokensUsed: sums.OutputTokens,
		RequestsUsed:     sums.Requests,
		WindowSeconds:    h.windowSeconds,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
