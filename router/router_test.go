package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/quotagate/admission"
	"github.com/kestrelhq/quotagate/config"
	"github.com/kestrelhq/quotagate/coordination"
	"github.com/kestrelhq/quotagate/mockgen"
	"github.com/kestrelhq/quotagate/observability"
	"github.com/kestrelhq/quotagate/tierconfig"
)

func testSetup(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Addr:             ":0",
		Env:              "test",
		APIKeyHeader:     "Authorization",
		WindowSeconds:    60,
		MaxBodyBytes:     1 << 20,
		MaxInFlight:      1024,
		CSAdmitTimeout:   50 * time.Millisecond,
		GeneratorTimeout: 2 * time.Second,
	}
	log := zerolog.New(io.Discard).With().Timestamp().Logger()

	store := coordination.NewMemStore()
	resolver, err := tierconfig.New("", tierconfig.RateLimitConfig{})
	if err != nil {
		t.Fatalf("tierconfig.New: %v", err)
	}

	deps := Deps{
		Store:     store,
		Engine:    admission.New(store, time.Duration(cfg.WindowSeconds)*time.Second, cfg.CSAdmitTimeout),
		Resolver:  resolver,
		Generator: mockgen.New(),
		Metrics:   observability.NewMetrics(log),
	}

	return NewRouter(cfg, log, deps)
}

func TestHealthEndpoints(t *testing.T) {
	r := testSetup(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"healthz", "/healthz", http.StatusOK},
		{"health", "/health", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rw := httptest.NewRecorder()
			r.ServeHTTP(rw, req)
			if rw.Result().StatusCode != tc.status {
				t.Fatalf("expected %d for %s, got %d", tc.status, tc.path, rw.Result().StatusCode)
			}
		})
	}
}

func TestModelsEndpointRequiresNoAuth(t *testing.T) {
	r := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Result().StatusCode)
	}
}

func TestChatCompletionsRequiresAuth(t *testing.T) {
	r := testSetup(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rw.Result().StatusCode)
	}
}

func TestUsageEndpointRequiresAuth(t *testing.T) {
	r := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/some-key", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rw.Result().StatusCode)
	}
}

func TestUsageEndpointWithAuth(t *testing.T) {
	r := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/some-key", nil)
	req.Header.Set("Authorization", "Bearer test-key-123")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Result().StatusCode)
	}
}
