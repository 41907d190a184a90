package apierr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{InvalidRequest, http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{RateLimited, http.StatusTooManyRequests},
		{CoordinationUnavailable, http.StatusBadGateway},
		{Overloaded, http.StatusServiceUnavailable},
		{GeneratorFailed, http.StatusBadGateway},
	}

	for _, c := range cases {
		err := New(c.kind, "x")
		if got := err.StatusCode(); got != c.want {
			t.Errorf("kind %s: expected status %d, got %d", c.kind, c.want, got)
		}
	}
}

func TestWriteRateLimitBody(t *testing.T) {
	rw := httptest.NewRecorder()
	Write(rw, RateLimit("INPUT_TPM", 7))

	if rw.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rw.Code)
	}
	if rw.Header().Get("Retry-After") != "7" {
		t.Fatalf("expected Retry-After=7, got %q", rw.Header().Get("Retry-After"))
	}

	var body struct {
		Error struct {
			Type       string `json:"type"`
			Dimension  string `json:"dimension"`
			RetryAfter int    `json:"retry_after"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error.Type != "rate_limit_exceeded" || body.Error.Dimension != "INPUT_TPM" || body.Error.RetryAfter != 7 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestWriteGenericErrorBody(t *testing.T) {
	rw := httptest.NewRecorder()
	Write(rw, New(Unauthorized, "missing bearer token"))

	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}
	if rw.Header().Get("Retry-After") != "" {
		t.Fatal("expected no Retry-After header for non-rate-limit errors")
	}
}
