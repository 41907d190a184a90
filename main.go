package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrelhq/quotagate/admission"
	"github.com/kestrelhq/quotagate/config"
	"github.com/kestrelhq/quotagate/coordination"
	"github.com/kestrelhq/quotagate/logger"
	"github.com/kestrelhq/quotagate/mockgen"
	"github.com/kestrelhq/quotagate/observability"
	"github.com/kestrelhq/quotagate/redisclient"
	"github.com/kestrelhq/quotagate/router"
	"github.com/kestrelhq/quotagate/tierconfig"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("quotagate starting")

	rc, err := redisclient.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("invalid coordination store configuration")
		os.Exit(1)
	}

	if err := waitForCoordinationStore(rc, log); err != nil {
		log.Error().Err(err).Msg("coordination store handshake failed after retry budget exhausted")
		os.Exit(2)
	}
	log.Info().Msg("coordination store connected")

	resolver, err := tierconfig.New(cfg.OverridesPath, tierconfig.RateLimitConfig{
		InputTPM:  cfg.InputTPMDefault,
		OutputTPM: cfg.OutputTPMDefault,
		RPM:       cfg.RPMDefault,
	})
	if err != nil {
		log.Error().Err(err).Msg("invalid rate limit overrides file")
		os.Exit(1)
	}

	store := coordination.NewRedisStore(rc)
	engine := admission.New(store, time.Duration(cfg.WindowSeconds)*time.Second, cfg.CSAdmitTimeout)
	generator := mockgen.New()
	metrics := observability.NewMetrics(log)

	deps := router.Deps{
		Store:     store,
		Engine:    engine,
		Resolver:  resolver,
		Generator: generator,
		Metrics:   metrics,
	}

	r := router.NewRouter(cfg, log, deps)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GeneratorTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("quotagate listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}

	log.Info().Msg("quotagate stopped gracefully")
}

// waitForCoordinationStore retries the initial CS ping with backoff,
// per spec.md §6's exit code 2 ("CS handshake failure at startup after
// retry budget exhausted").
func waitForCoordinationStore(rc *redis.Client, log zerolog.Logger) error {
	const maxAttempts = 5
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := redisclient.Ping(context.Background(), rc); err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("coordination store ping failed, retrying")
			time.Sleep(backoff)
			backoff *= 2
			continue
		}
		return nil
	}
	return lastErr
}
