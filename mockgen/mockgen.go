// Package mockgen is the external mock response generator spec.md treats
// as an out-of-scope collaborator ("a pure function of request + sampled
// counts"). This package implements the interface the Request Handler
// dispatches to on admit — a concrete stand-in so the data flow in
// spec.md §2 runs end to end, adapted from the teacher's OpenAI-shaped
// ChatResponse construction in handler/proxy.go.
package mockgen

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhq/quotagate/apitypes"
	"github.com/kestrelhq/quotagate/tokenizer"
)

// Generator produces a synthetic completion for an admitted request.
type Generator struct {
	rng *rand.Rand
	mu  chan struct{} // 1-buffered mutex; rand.Rand is not concurrency-safe
}

// New creates a Generator seeded from the current time.
func New() *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		mu:  make(chan struct{}, 1),
	}
	g.mu <- struct{}{}
	return g
}

// Result is what the generator returns to the Request Handler: the
// OpenAI-shaped response plus the actual token counts used for reconciliation.
type Result struct {
	Response           apitypes.ChatResponse
	ActualPromptTokens int
	ActualCompletionTokens int
}

// Generate synthesizes a completion for the given request. promptTokens
// is passed in rather than recomputed so it is guaranteed to equal the
// value already committed to the coordination store on admission — the
// tokenizer round-trip property spec.md §8 requires.
func (g *Generator) Generate(ctx context.Context, model string, messages []apitypes.ChatMessage, maxTokens int, promptTokens int) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	completionTokens := g.sample(maxTokens)

	resp := apitypes.ChatResponse{
		ID:      "mock_" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []apitypes.Choice{
			{
				Index: 0,
				Message: apitypes.ChatMessage{
					Role:    "assistant",
					Content: synthesizeContent(completionTokens),
				},
				FinishReason: "stop",
			},
		},
		Usage: apitypes.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}

	return Result{
		Response:               resp,
		ActualPromptTokens:     promptTokens,
		ActualCompletionTokens: completionTokens,
	}, nil
}

func (g *Generator) sample(maxTokens int) int {
	<-g.mu
	defer func() { g.mu <- struct{}{} }()
	return tokenizer.SampleOutput(g.rng.Intn, maxTokens)
}

// synthesizeContent returns a placeholder completion sized roughly to the
// sampled token count; it is never re-tokenized, so its exact shape is
// cosmetic.
func synthesizeContent(tokens int) string {
	words := make([]string, 0, tokens)
	for i := 0; i < tokens; i++ {
		words = append(words, "lorem")
	}
	return strings.Join(words, " ")
}
