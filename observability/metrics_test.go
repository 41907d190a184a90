package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetInFlightExposesGauge(t *testing.T) {
	m := NewMetrics(zerolog.New(io.Discard))
	m.SetInFlight(3)

	rw := httptest.NewRecorder()
	m.Handler()(rw, httptest.NewRequest("GET", "/metrics", nil))

	body := rw.Body.String()
	if !strings.Contains(body, "quotagate_inflight_requests 3.000000") {
		t.Fatalf("expected inflight gauge at 3 in exposition output, got:\n%s", body)
	}
}

func TestTrackRequestRecordsTokens(t *testing.T) {
	m := NewMetrics(zerolog.New(io.Discard))
	m.TrackRequest("/v1/chat/completions", 200, 12.5, 150)

	if got := m.getCounter("quotagate_tokens_total", map[string]string{"endpoint": "/v1/chat/completions", "status": "200"}).Value(); got != 150 {
		t.Fatalf("expected 150 tokens recorded, got %d", got)
	}
}
