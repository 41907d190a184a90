// Package redisclient constructs the shared *redis.Client connection
// pool the coordination store client runs its scripts against.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/quotagate/config"
	"github.com/redis/go-redis/v9"
)

// New parses cfg.CoordinationURL and returns a pooled Redis client. The
// pool is sized to at least cfg.RedisPoolSize connections with FIFO
// acquisition and a bounded wait, per spec.md §5: "a fixed pool of ≥ 16
// connections with FIFO acquisition and a bounded wait; acquisition
// failure surfaces as CoordinationUnavailable."
func New(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.CoordinationURL)
	if err != nil {
		return nil, fmt.Errorf("invalid COORDINATION_URL: %w", err)
	}

	poolSize := cfg.RedisPoolSize
	if poolSize < 16 {
		poolSize = 16
	}
	opt.PoolSize = poolSize
	opt.PoolFIFO = true
	opt.PoolTimeout = cfg.CSAdmitTimeout // bounds connection acquisition only; admission.Engine bounds the EVALSHA round trip itself

	return redis.NewClient(opt), nil
}

// Ping verifies connectivity within a short bounded timeout, used at
// startup (spec.md §6 exit code 2). GET /health goes through
// coordination.Store.Ping instead.
func Ping(ctx context.Context, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
