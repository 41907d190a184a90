// Package admission implements the Admission Engine: the distributed
// sliding-window admission decision at the core of this system. It
// embeds no per-key state of its own — every decision is a single
// round trip to the Coordination Store (spec.md §4.2).
package admission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhq/quotagate/coordination"
)

// ErrInvalidKey is returned when Admit is called with an empty key.
var ErrInvalidKey = errors.New("admission: key must not be empty")

// Decision is the tagged outcome of one admission (spec.md §3's
// AdmissionDecision).
type Decision struct {
	Admitted bool

	// Populated when Admitted is true.
	EventID         string
	CommittedInput  int
	CommittedOutput int

	// Populated when Admitted is false.
	Dimension  coordination.Dimension
	RetryAfter int // seconds, clamped to [1, Window]
}

// Engine is the Admission Engine. It is safe for concurrent use.
type Engine struct {
	store        coordination.Store
	window       time.Duration
	admitTimeout time.Duration
}

// New creates an Engine backed by the given Coordination Store client.
// admitTimeout bounds every CS round trip Admit makes (spec.md §5:
// CS_ADMIT_TIMEOUT_MS, ≤50ms) — a pool-wait or EVALSHA that outlives it
// surfaces as coordination.ErrUnavailable, mapped to CoordinationUnavailable.
func New(store coordination.Store, window, admitTimeout time.Duration) *Engine {
	return &Engine{store: store, window: window, admitTimeout: admitTimeout}
}

// Admit evaluates the three limits for key and, if all are satisfied,
// commits the request's costs in the same atomic CS round trip. now
// must be a monotonic wall-clock read taken just before the call.
//
// Admit is never idempotent: a retry with a fresh event_id consumes
// quota again (spec.md §8).
func (e *Engine) Admit(ctx context.Context, key string, estIn, estOut int, now time.Time, limitIn, limitOut, limitReq int) (Decision, error) {
	if key == "" {
		return Decision{}, ErrInvalidKey
	}

	eventID := uuid.NewString()

	admitCtx, cancel := context.WithTimeout(ctx, e.admitTimeout)
	defer cancel()

	outcome, err := e.store.Admit(admitCtx, coordination.AdmitParams{
		Key:      key,
		EventID:  eventID,
		CostIn:   estIn,
		CostOut:  estOut,
		LimitIn:  limitIn,
		LimitOut: limitOut,
		LimitReq: limitReq,
		Now:      now,
		Window:   e.window,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("admission: %w", err)
	}

	if !outcome.Admitted {
		return Decision{
			Admitted:   false,
			Dimension:  outcome.Dimension,
			RetryAfter: clampRetryAfter(outcome.RetryAt, now, e.window),
		}, nil
	}

	return Decision{
		Admitted:        true,
		EventID:         eventID,
		CommittedInput:  estIn,
		CommittedOutput: estOut,
	}, nil
}

// Reconcile adjusts a previously committed event's output cost after the
// mock generator reports the actual completion length. A no-op when
// actualOut equals oldOut. Failure is the caller's to log and drop —
// subsequent requests are never blocked on reconciliation succeeding.
func (e *Engine) Reconcile(ctx context.Context, key, eventID string, oldOut, actualOut int) error {
	if actualOut == oldOut {
		return nil
	}
	return e.store.Reconcile(ctx, coordination.ReconcileParams{
		Key:     key,
		EventID: eventID,
		NewCost: actualOut,
	})
}

// clampRetryAfter computes ceil(retryAt - now) clamped to [1, window],
// per spec.md §4.2.
func clampRetryAfter(retryAt, now time.Time, window time.Duration) int {
	d := retryAt.Sub(now)
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	maxSecs := int(window.Seconds())
	if secs > maxSecs {
		secs = maxSecs
	}
	return secs
}
