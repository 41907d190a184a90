// Package tokenizer implements the Token Accountant: a deterministic,
// pure token estimator. Its count is booked before admission and handed
// to the mock generator, which echoes it as prompt_tokens, so the two
// numbers always agree — see spec.md §4.5 and §8's round-trip property.
package tokenizer

import (
	"unicode/utf8"

	"github.com/kestrelhq/quotagate/apitypes"
)

// charsPerToken and messageOverhead are fixed constants, not per-provider
// strategy selection: the teacher's provider/tokenizer.go dispatched on
// provider name (tiktoken vs Anthropic vs Gemini ratios) because it had to
// match five different real upstream tokenizers. This system has one
// synthetic model family behind a mock generator, so a single canonical
// ratio keeps count_input a pure function of its input with no model- or
// provider-keyed branching — required by spec.md §4.5 ("identical inputs
// on any node yield identical counts").
const (
	charsPerToken        = 4.0
	perMessageOverhead   = 4
	replyPrimingTokens   = 3
)

// CountInput sums the fixed per-message overhead plus the estimated token
// count of each message's content, matching the teacher's countMessage.
func CountInput(messages []apitypes.ChatMessage) int {
	total := 0
	for _, msg := range messages {
		total += countMessage(msg)
	}
	if len(messages) > 0 {
		total += replyPrimingTokens
	}
	return total
}

func countMessage(msg apitypes.ChatMessage) int {
	tokens := perMessageOverhead + 1 // +1 for the role token

	switch content := msg.Content.(type) {
	case string:
		tokens += estimateTokens(content)
	case []interface{}:
		for _, part := range content {
			if m, ok := part.(map[string]interface{}); ok {
				if text, exists := m["text"]; exists {
					if s, ok := text.(string); ok {
						tokens += estimateTokens(s)
					}
				}
			}
		}
	}

	if msg.Name != "" {
		tokens += estimateTokens(msg.Name) + 1
	}

	return tokens
}

// estimateTokens applies the fixed chars-per-token ratio. Never returns 0
// for non-empty text, matching the teacher's "minimum of 1 token" rule.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	charCount := utf8.RuneCountInString(text)
	tokens := int(float64(charCount) / charsPerToken)
	if tokens == 0 {
		return 1
	}
	return tokens
}

// SampleOutput draws an integer in [1, maxTokens] from the mock
// generator's distribution. Per spec.md §4.5 this is used only by the
// external generator, never by the admission path itself.
func SampleOutput(rng func(n int) int, maxTokens int) int {
	if maxTokens <= 1 {
		return 1
	}
	return 1 + rng(maxTokens)
}
