package coordination

import (
	"context"
	"sync"
	"time"
)

// event is one committed (timestamp, cost) record.
type event struct {
	ts   time.Time
	cost int
}

type counter struct {
	events map[string]event // event_id -> event
}

func newCounter() *counter { return &counter{events: make(map[string]event)} }

// evictAndSum removes events older than cutoff and returns the remaining sum
// and the oldest surviving timestamp (zero if empty).
func (c *counter) evictAndSum(cutoff time.Time) (sum int, oldest time.Time) {
	for id, e := range c.events {
		if e.ts.Before(cutoff) {
			delete(c.events, id)
		}
	}
	first := true
	for _, e := range c.events {
		sum += e.cost
		if first || e.ts.Before(oldest) {
			oldest = e.ts
			first = false
		}
	}
	return sum, oldest
}

func (c *counter) liveSum(cutoff time.Time) int {
	sum := 0
	for _, e := range c.events {
		if !e.ts.Before(cutoff) {
			sum += e.cost
		}
	}
	return sum
}

// MemStore is an in-process Store implementation satisfying the same
// interface as RedisStore, over per-key maps of event_id to event instead
// of Redis structures. Used by admission/handler/router unit tests to exercise
// the admission state machine without a live Redis (spec.md's "single
// indivisible CS operation" invariant is preserved by holding one mutex
// for the lifetime of the call, mirroring the Lua script's atomicity on
// a single Redis instance). Never wired into main.go.
type MemStore struct {
	mu   sync.Mutex
	keys map[string]*keyCounters
}

type keyCounters struct {
	in, out, req *counter
}

// NewMemStore creates an empty in-memory coordination store.
func NewMemStore() *MemStore {
	return &MemStore{keys: make(map[string]*keyCounters)}
}

func (s *MemStore) forKey(key string) *keyCounters {
	kc, ok := s.keys[key]
	if !ok {
		kc = &keyCounters{in: newCounter(), out: newCounter(), req: newCounter()}
		s.keys[key] = kc
	}
	return kc
}

// Admit mirrors admitScript exactly, step for step.
func (s *MemStore) Admit(ctx context.Context, p AdmitParams) (AdmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kc := s.forKey(p.Key)
	cutoff := p.Now.Add(-p.Window)

	sumIn, oldestIn := kc.in.evictAndSum(cutoff)
	sumOut, oldestOut := kc.out.evictAndSum(cutoff)
	sumReq, oldestReq := kc.req.evictAndSum(cutoff)

	if sumIn+p.CostIn > p.LimitIn {
		return AdmitOutcome{Dimension: DimInputTPM, RetryAt: retryAt(oldestIn, p.Now, p.Window)}, nil
	}
	if sumOut+p.CostOut > p.LimitOut {
		return AdmitOutcome{Dimension: DimOutputTPM, RetryAt: retryAt(oldestOut, p.Now, p.Window)}, nil
	}
	if sumReq+1 > p.LimitReq {
		return AdmitOutcome{Dimension: DimRPM, RetryAt: retryAt(oldestReq, p.Now, p.Window)}, nil
	}

	kc.in.events[p.EventID] = event{ts: p.Now, cost: p.CostIn}
	kc.out.events[p.EventID] = event{ts: p.Now, cost: p.CostOut}
	kc.req.events[p.EventID] = event{ts: p.Now, cost: 1}

	return AdmitOutcome{Admitted: true}, nil
}

func retryAt(oldest, now time.Time, window time.Duration) time.Time {
	if oldest.IsZero() {
		return now.Add(window)
	}
	return oldest.Add(window)
}

// Reconcile mirrors reconcileScript: update cost if the event is still
// present, no-op (success) otherwise, never re-checking any limit.
func (s *MemStore) Reconcile(ctx context.Context, p ReconcileParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kc, ok := s.keys[p.Key]
	if !ok {
		return nil
	}
	if e, ok := kc.out.events[p.EventID]; ok {
		e.cost = p.NewCost
		kc.out.events[p.EventID] = e
	}
	return nil
}

// Usage computes current non-expired sums without mutating any counter.
func (s *MemStore) Usage(ctx context.Context, key string, now time.Time, window time.Duration) (UsageSums, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kc, ok := s.keys[key]
	if !ok {
		return UsageSums{}, nil
	}
	cutoff := now.Add(-window)
	return UsageSums{
		InputTokens:  int64(kc.in.liveSum(cutoff)),
		OutputTokens: int64(kc.out.liveSum(cutoff)),
		Requests:     int64(kc.req.liveSum(cutoff)),
	}, nil
}

// Ping always succeeds: there is no network hop to a MemStore.
func (s *MemStore) Ping(ctx context.Context) error { return nil }
