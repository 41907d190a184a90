package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kestrelhq/quotagate/admission"
	"github.com/kestrelhq/quotagate/config"
	"github.com/kestrelhq/quotagate/coordination"
	"github.com/kestrelhq/quotagate/handler"
	gwmw "github.com/kestrelhq/quotagate/middleware"
	"github.com/kestrelhq/quotagate/mockgen"
	"github.com/kestrelhq/quotagate/observability"
	"github.com/kestrelhq/quotagate/tierconfig"
)

// Deps bundles the components NewRouter wires into handlers.
type Deps struct {
	Store     coordination.Store
	Engine    *admission.Engine
	Resolver  *tierconfig.Resolver
	Generator *mockgen.Generator
	Metrics   *observability.Metrics
}

// NewRouter returns a configured chi Router with the full middleware
// chain and all API routes mounted: CORS → security headers →
// RequestID → Recoverer → request logger → body-size limit → auth →
// backpressure → route handler (SPEC_FULL.md §4.3).
func NewRouter(cfg *config.Config, appLogger zerolog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(gwmw.CORSMiddleware([]string{"*"}))
	r.Use(gwmw.SecurityHeadersMiddleware)
	r.Use(gwmw.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(appLogger))

	backpressure := gwmw.NewBackpressure(cfg.MaxInFlight, deps.Metrics.SetInFlight)
	auth := gwmw.NewAuthMiddleware(cfg.APIKeyHeader)

	chatHandler := handler.NewChatHandler(appLogger, deps.Resolver, deps.Engine, deps.Generator, deps.Metrics, cfg.GeneratorTimeout, cfg.WindowSeconds)
	usageHandler := handler.NewUsageHandler(deps.Store, cfg.WindowSeconds)
	healthHandler := handler.NewHealthHandler(deps.Store)

	r.Get("/health", healthHandler.ServeHTTP)
	r.Get("/healthz", healthHandler.ServeHTTP)
	r.Get("/metrics", deps.Metrics.Handler())
	r.Get("/v1/models", handler.ModelsHandler)

	r.Group(func(protected chi.Router) {
		protected.Use(bodySizeLimit(cfg.MaxBodyBytes))
		protected.Use(auth.Handler)
		protected.Use(backpressure.Middleware)

		protected.Post("/v1/chat/completions", chatHandler.ServeHTTP)
		protected.Get("/v1/usage/{api_key}", usageHandler.ServeHTTP)
	})

	return r
}

func bodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", r.Header.Get("X-Request-ID")).
				Msg("request")
		})
	}
}
