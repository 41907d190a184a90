package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kestrelhq/quotagate/apitypes"
	"github.com/kestrelhq/quotagate/coordination"
)

func TestUsageHandlerReportsLiveSums(t *testing.T) {
	store := coordination.NewMemStore()
	h := NewUsageHandler(store, 60)

	now := time.Now()
	if _, err := store.Admit(context.Background(), coordination.AdmitParams{
		Key: "usage-key", EventID: "e1", CostIn: 30, CostOut: 20,
		LimitIn: 1000, LimitOut: 1000, LimitReq: 10, Now: now, Window: time.Minute,
	}); err != nil {
		t.Fatalf("setup Admit failed: %v", err)
	}

	r := chi.NewRouter()
	r.Get("/v1/usage/{api_key}", h.ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/usage-key", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var resp apitypes.UsageSummary
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.InputTokensUsed != 30 || resp.OutputTokensUsed != 20 || resp.RequestsUsed != 1 {
		t.Fatalf("unexpected usage summary: %+v", resp)
	}
	if resp.WindowSeconds != 60 {
		t.Fatalf("expected window_seconds=60, got %d", resp.WindowSeconds)
	}
}

func TestUsageHandlerUnknownKeyReportsZero(t *testing.T) {
	store := coordination.NewMemStore()
	h := NewUsageHandler(store, 60)

	r := chi.NewRouter()
	r.Get("/v1/usage/{api_key}", h.ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/never-seen", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	var resp apitypes.UsageSummary
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.InputTokensUsed != 0 || resp.OutputTokensUsed != 0 || resp.RequestsUsed != 0 {
		t.Fatalf("expected all-zero usage for an unseen key, got %+v", resp)
	}
}
