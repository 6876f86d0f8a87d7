package llm

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates prompt sizes. Every provider is approximated with the GPT-4 encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a counter using the GPT-4 encoding.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text. A nil counter, or an
// encoding failure, falls back to a 4-characters-per-token estimate.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}
