package llmrt

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// pricePerMillionTokens holds published per-million-token prices, input and
// output, for each model handle this pipeline is configured to run against.
// Grounded on the teacher's per-model constant tables in pkg/config, with
// the four providers SPEC_FULL.md's domain stack names.
var pricePerMillionTokens = map[string][2]float64{ //nolint:gochecknoglobals
	"claude-opus-4":      {15.00, 75.00},
	"claude-sonnet-4":    {3.00, 15.00},
	"gpt-4o":             {2.50, 10.00},
	"gpt-4o-mini":        {0.15, 0.60},
	"gemini-1.5-pro":     {1.25, 5.00},
	"gemini-1.5-flash":   {0.075, 0.30},
	"llama3.1":           {0, 0}, // local via ollama: no per-token cost
}

// defaultPrice is used for an unrecognized model handle, erring toward the
// more expensive end so an unknown model doesn't silently bypass budgets.
var defaultPrice = [2]float64{15.00, 75.00} //nolint:gochecknoglobals

// estimateCostUSD prices usage against model's published rate.
func estimateCostUSD(model string, usage Usage) float64 {
	price, ok := pricePerMillionTokens[model]
	if !ok {
		price = defaultPrice
	}
	inputCost := float64(usage.PromptTokens) / 1_000_000 * price[0]
	outputCost := float64(usage.CompletionTokens) / 1_000_000 * price[1]
	return inputCost + outputCost
}

// TokenCounter estimates token counts for text that hasn't gone through a
// model round trip yet (e.g. sizing a prompt before sending it), using
// tiktoken-go/tokenizer's GPT-4 codec as a cross-provider approximation —
// the same approximation the teacher's TokenCounter makes for Claude.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter builds a counter. model is accepted for parity with the
// teacher's constructor signature but every provider currently maps to the
// same GPT-4 codec.
func NewTokenCounter(model string) (*TokenCounter, error) {
	_ = model
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the estimated token count of text, falling back to a
// character-based heuristic if the codec fails.
func (tc *TokenCounter) Count(text string) int {
	if tc.codec == nil {
		return len(text) / 4
	}
	n, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// normalizeModel strips version suffixes some backends append (e.g.
// "claude-opus-4-20250514" -> "claude-opus-4") so pricing lookups still hit.
func normalizeModel(model string) string {
	best := ""
	for known := range pricePerMillionTokens {
		if strings.HasPrefix(model, known) && len(known) > len(best) {
			best = known
		}
	}
	if best != "" {
		return best
	}
	return model
}
