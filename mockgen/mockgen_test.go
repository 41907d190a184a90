package mockgen

import (
	"context"
	"strings"
	"testing"

	"github.com/kestrelhq/quotagate/apitypes"
)

func TestGenerateReportsProvidedPromptTokens(t *testing.T) {
	g := New()
	messages := []apitypes.ChatMessage{{Role: "user", Content: "hello"}}

	result, err := g.Generate(context.Background(), "mock-standard", messages, 16, 42)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.ActualPromptTokens != 42 {
		t.Fatalf("expected prompt_tokens to echo the committed estimate 42, got %d", result.ActualPromptTokens)
	}
	if result.Response.Usage.PromptTokens != 42 {
		t.Fatalf("expected response usage.prompt_tokens=42, got %d", result.Response.Usage.PromptTokens)
	}
}

func TestGenerateCompletionWithinMaxTokens(t *testing.T) {
	g := New()
	messages := []apitypes.ChatMessage{{Role: "user", Content: "hello"}}

	result, err := g.Generate(context.Background(), "mock-standard", messages, 8, 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.ActualCompletionTokens < 1 || result.ActualCompletionTokens > 8 {
		t.Fatalf("expected completion tokens in [1, 8], got %d", result.ActualCompletionTokens)
	}
	if result.Response.Usage.TotalTokens != result.ActualPromptTokens+result.ActualCompletionTokens {
		t.Fatal("expected total_tokens to equal prompt + completion")
	}
}

func TestGenerateResponseIDPrefixed(t *testing.T) {
	g := New()
	messages := []apitypes.ChatMessage{{Role: "user", Content: "hi"}}

	result, err := g.Generate(context.Background(), "mock-standard", messages, 4, 5)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(result.Response.ID, "mock_") {
		t.Fatalf("expected id prefixed mock_, got %q", result.Response.ID)
	}
	if result.Response.Object != "chat.completion" {
		t.Fatalf("expected object=chat.completion, got %q", result.Response.Object)
	}
}

func TestGenerateRespectsCancellation(t *testing.T) {
	g := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, "mock-standard", []apitypes.ChatMessage{{Role: "user", Content: "hi"}}, 4, 5)
	if err == nil {
		t.Fatal("expected an error for an already-cancelled context")
	}
}
