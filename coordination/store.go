// Package coordination is the client-side view of the Coordination
// Store (CS) spec.md §4.1 specifies: the sole owner of WindowCounter
// state, providing one atomic admission batch and one reconcile
// operation per key. This package defines the Store interface both
// implementations (Redis-backed, in-memory test double) satisfy.
package coordination

import (
	"context"
	"errors"
	"time"
)

// Dimension identifies which of the three per-key limits was violated.
type Dimension string

const (
	DimInputTPM  Dimension = "INPUT_TPM"
	DimOutputTPM Dimension = "OUTPUT_TPM"
	DimRPM       Dimension = "RPM"
)

// ErrUnavailable is returned when the CS cannot be reached or its script
// errors. Callers must never silently admit on this error (spec.md §4.2).
var ErrUnavailable = errors.New("coordination store unavailable")

// AdmitParams is the input to one atomic admission batch (spec.md §4.1).
type AdmitParams struct {
	Key      string
	EventID  string
	CostIn   int
	CostOut  int
	LimitIn  int
	LimitOut int
	LimitReq int
	Now      time.Time
	Window   time.Duration
}

// AdmitOutcome is the result of an admission batch.
type AdmitOutcome struct {
	Admitted  bool
	Dimension Dimension // populated only when Admitted is false
	RetryAt   time.Time // earliest wall time the violated dimension could clear
}

// ReconcileParams is the input to the reconcile operation (spec.md §4.1).
type ReconcileParams struct {
	Key     string
	EventID string
	NewCost int
}

// UsageSums are the current non-expired per-dimension sums for a key, as
// returned by GET /v1/usage/{api_key}. Computed without mutating state.
type UsageSums struct {
	InputTokens  int64
	OutputTokens int64
	Requests     int64
}

// Store is the Coordination Store client interface. Every method issues
// exactly one round trip.
type Store interface {
	// Admit runs the 6-step atomic batch from spec.md §4.1.
	Admit(ctx context.Context, p AdmitParams) (AdmitOutcome, error)
	// Reconcile adjusts a previously committed event's output cost
	// without re-checking any limit.
	Reconcile(ctx context.Context, p ReconcileParams) error
	// Usage returns current non-expired sums for a key without evicting
	// or mutating any counter.
	Usage(ctx context.Context, key string, now time.Time, window time.Duration) (UsageSums, error)
	// Ping verifies connectivity, used by GET /health.
	Ping(ctx context.Context) error
}
