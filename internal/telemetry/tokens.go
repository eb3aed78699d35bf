package telemetry

import (
	"math"
	"unicode"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens for metrics. The upstream stream carries no usage
// block, so prompt and completion sizes are measured on our side.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter loads the cl100k_base encoding. If it cannot be loaded the
// counter falls back to a character-based estimate.
func NewTokenCounter() *TokenCounter {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return &TokenCounter{}
	}
	return &TokenCounter{codec: codec}
}

// Count returns the number of tokens in s.
func (c *TokenCounter) Count(s string) int {
	if s == "" {
		return 0
	}
	if c != nil && c.codec != nil {
		if ids, _, err := c.codec.Encode(s); err == nil {
			return len(ids)
		}
	}
	return EstimateTokens(s)
}

// EstimateTokens approximates a token count from character units: Latin
// characters weigh 1, whitespace 0.25 and CJK or other scripts 4.5, with four
// units per token. The result is rounded up.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	var units float64
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			units += 0.25
		case isLatin(r):
			units++
		default:
			units += 4.5
		}
	}
	n := int(math.Ceil(units / 4))
	if n < 1 {
		return 1
	}
	return n
}

func isLatin(r rune) bool {
	switch {
	case r <= 0x024F:
		return true
	case r >= 0x1E00 && r <= 0x1EFF:
		return true
	case r >= 0x2C60 && r <= 0x2C7F:
		return true
	case r >= 0xA720 && r <= 0xA7FF:
		return true
	}
	return false
}
