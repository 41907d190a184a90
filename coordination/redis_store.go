package coordination

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store implementation. It wraps a
// *redis.Client and runs the atomic batches via cached Lua scripts —
// redis.Script transparently EVALSHAs and falls back to EVAL on
// NOSCRIPT, so there is no manual SHA bookkeeping here.
type RedisStore struct {
	rdb           *redis.Client
	admit         *redis.Script
	reconcile     *redis.Script
	usage         *redis.Script
}

// NewRedisStore wraps an existing Redis client. The caller owns the
// client's lifecycle (pool sizing, TLS, etc. — see redisclient.New).
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		admit:     redis.NewScript(admitScript),
		reconcile: redis.NewScript(reconcileScript),
		usage:     redis.NewScript(usageScript),
	}
}

func keys(key string) (inZ, inH, outZ, outH, reqZ, reqH string) {
	return "rate_limit:" + key + ":input_tokens",
		"rate_limit:" + key + ":input_tokens:cost",
		"rate_limit:" + key + ":output_tokens",
		"rate_limit:" + key + ":output_tokens:cost",
		"rate_limit:" + key + ":requests",
		"rate_limit:" + key + ":requests:cost"
}

// Admit issues the single-round-trip atomic admission batch.
func (s *RedisStore) Admit(ctx context.Context, p AdmitParams) (AdmitOutcome, error) {
	inZ, inH, outZ, outH, reqZ, reqH := keys(p.Key)
	nowMs := p.Now.UnixMilli()
	windowMs := p.Window.Milliseconds()
	ttlMs := windowMs + 1000 // TTL strictly >= W, per spec.md §4.1 step 6

	res, err := s.admit.Run(ctx, s.rdb,
		[]string{inZ, inH, outZ, outH, reqZ, reqH},
		nowMs, windowMs, p.CostIn, p.CostOut, p.LimitIn, p.LimitOut, p.LimitReq, p.EventID, ttlMs,
	).Result()
	if err != nil {
		return AdmitOutcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	arr, ok := res.([]interface{})
	if !ok || len(arr) != 3 {
		return AdmitOutcome{}, fmt.Errorf("%w: unexpected admit script response", ErrUnavailable)
	}

	admitted, _ := arr[0].(int64)
	dimension, _ := arr[1].(string)
	retryAtMs, _ := arr[2].(int64)

	return AdmitOutcome{
		Admitted:  admitted == 1,
		Dimension: Dimension(dimension),
		RetryAt:   time.UnixMilli(retryAtMs),
	}, nil
}

// Reconcile adjusts a previously committed event's output cost.
func (s *RedisStore) Reconcile(ctx context.Context, p ReconcileParams) error {
	_, _, _, outH, _, _ := keys(p.Key)
	_, err := s.reconcile.Run(ctx, s.rdb, []string{outH}, p.EventID, p.NewCost).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Usage computes current non-expired sums without mutating any counter.
func (s *RedisStore) Usage(ctx context.Context, key string, now time.Time, window time.Duration) (UsageSums, error) {
	inZ, inH, outZ, outH, reqZ, reqH := keys(key)
	res, err := s.usage.Run(ctx, s.rdb,
		[]string{inZ, inH, outZ, outH, reqZ, reqH},
		now.UnixMilli(), window.Milliseconds(),
	).Result()
	if err != nil {
		return UsageSums{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	arr, ok := res.([]interface{})
	if !ok || len(arr) != 3 {
		return UsageSums{}, fmt.Errorf("%w: unexpected usage script response", ErrUnavailable)
	}
	in, _ := arr[0].(int64)
	out, _ := arr[1].(int64)
	req, _ := arr[2].(int64)

	return UsageSums{InputTokens: in, OutputTokens: out, Requests: req}, nil
}

// Ping verifies connectivity to the coordination store.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
