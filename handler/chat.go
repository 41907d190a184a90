package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kestrelhq/quotagate/admission"
	"github.com/kestrelhq/quotagate/apierr"
	"github.com/kestrelhq/quotagate/apitypes"
	"github.com/kestrelhq/quotagate/middleware"
	"github.com/kestrelhq/quotagate/mockgen"
	"github.com/kestrelhq/quotagate/observability"
	"github.com/kestrelhq/quotagate/tierconfig"
	"github.com/kestrelhq/quotagate/tokenizer"
	"github.com/rs/zerolog"
)

const maxChatBodyBytes = 1 << 20 // 1 MiB

// ChatHandler implements POST /v1/chat/completions: the single
// endpoint that threads CR → TA.pre → AE → generator → TA.post →
// AE.reconcile (spec.md §2's data flow).
type ChatHandler struct {
	logger        zerolog.Logger
	resolver      *tierconfig.Resolver
	engine        *admission.Engine
	generator     *mockgen.Generator
	metrics       *observability.Metrics
	genTimeout    time.Duration
	windowSeconds int
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(logger zerolog.Logger, resolver *tierconfig.Resolver, engine *admission.Engine, generator *mockgen.Generator, metrics *observability.Metrics, genTimeout time.Duration, windowSeconds int) *ChatHandler {
	return &ChatHandler{
		logger:        logger,
		resolver:      resolver,
		engine:        engine,
		generator:     generator,
		metrics:       metrics,
		genTimeout:    genTimeout,
		windowSeconds: windowSeconds,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	apiKey := middleware.GetAPIKey(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	var req apitypes.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.New(apierr.InvalidRequest, "malformed request body: "+err.Error()))
		return
	}
	if req.Model == "" {
		apierr.Write(w, apierr.New(apierr.InvalidRequest, "model field is required"))
		return
	}
	if len(req.Messages) == 0 {
		apierr.Write(w, apierr.New(apierr.InvalidRequest, "messages field must not be empty"))
		return
	}

	maxTokens := 256
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	cfg := h.resolver.Resolve(apiKey)
	estIn := tokenizer.CountInput(req.Messages)
	estOut := maxTokens

	decision, err := h.engine.Admit(r.Context(), apiKey, estIn, estOut, time.Now(), cfg.InputTPM, cfg.OutputTPM, cfg.RPM)
	if err != nil {
		h.metrics.TrackCoordinationUnavailable()
		apierr.Write(w, apierr.New(apierr.CoordinationUnavailable, "coordination store unavailable"))
		return
	}

	setRateLimitHeaders(w, cfg, decision, h.windowSeconds)

	if !decision.Admitted {
		h.logger.Debug().Str("api_key", apiKey).Str("dimension", string(decision.Dimension)).Msg("request denied by admission engine")
		h.metrics.TrackAdmission(string(decision.Dimension), false, time.Since(start).Seconds()*1000)
		apierr.Write(w, apierr.RateLimit(string(decision.Dimension), decision.RetryAfter))
		return
	}
	h.metrics.TrackAdmission("", true, time.Since(start).Seconds()*1000)

	genCtx, cancel := context.WithTimeout(r.Context(), h.genTimeout)
	defer cancel()

	result, err := h.generator.Generate(genCtx, req.Model, req.Messages, maxTokens, estIn)
	if err != nil {
		apierr.Write(w, apierr.New(apierr.GeneratorFailed, "generator failed: "+err.Error()))
		return
	}

	if result.ActualCompletionTokens != decision.CommittedOutput {
		if err := h.engine.Reconcile(r.Context(), apiKey, decision.EventID, decision.CommittedOutput, result.ActualCompletionTokens); err != nil {
			h.logger.Debug().Err(err).Str("api_key", apiKey).Msg("reconcile failed, event will expire naturally")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result.Response)

	totalTokens := int64(result.ActualPromptTokens + result.ActualCompletionTokens)
	h.metrics.TrackRequest("/v1/chat/completions", http.StatusOK, time.Since(start).Seconds()*1000, totalTokens)
}

// setRateLimitHeaders sets X-RateLimit-Limit/Remaining/Reset on every
// response regardless of outcome, matching the teacher's convention
// (carried forward in SPEC_FULL.md §3).
func setRateLimitHeaders(w http.ResponseWriter, cfg tierconfig.RateLimitConfig, d admission.Decision, windowSeconds int) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.InputTPM))
	if d.Admitted {
		remaining := cfg.InputTPM - d.CommittedInput
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(windowSeconds))
		return
	}
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(d.RetryAfter))
}
