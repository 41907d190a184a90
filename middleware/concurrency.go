package middleware

import (
	"net/http"

	"github.com/kestrelhq/quotagate/apierr"
)

// Backpressure caps the number of in-flight requests per process at a
// fixed ceiling (spec.md §5). Over-ceiling arrivals receive 503 without
// ever touching the Coordination Store — the semaphore gates entry to
// the route handler after auth and before admission runs.
type Backpressure struct {
	slots    chan struct{}
	onChange func(int) // reports ActiveCount() after every acquire/release; nil-safe
}

// NewBackpressure creates a semaphore-backed backpressure gate sized to
// maxInFlight concurrent requests. onChange, if non-nil, is called with
// the new ActiveCount() every time a slot is acquired or released —
// router.NewRouter wires it to observability.Metrics.SetInFlight.
func NewBackpressure(maxInFlight int, onChange func(int)) *Backpressure {
	if maxInFlight <= 0 {
		maxInFlight = 1024
	}
	return &Backpressure{slots: make(chan struct{}, maxInFlight), onChange: onChange}
}

// Middleware rejects requests over the configured ceiling with 503.
func (b *Backpressure) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case b.slots <- struct{}{}:
			b.report()
			defer func() { <-b.slots; b.report() }()
			next.ServeHTTP(w, r)
		default:
			apierr.Write(w, apierr.New(apierr.Overloaded, "node in-flight request ceiling reached"))
		}
	})
}

func (b *Backpressure) report() {
	if b.onChange != nil {
		b.onChange(b.ActiveCount())
	}
}

// ActiveCount reports the current number of occupied slots, for metrics
// reporting.
func (b *Backpressure) ActiveCount() int {
	return len(b.slots)
}
