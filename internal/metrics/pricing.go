package metrics

import (
	"math"
	"strings"
)

// ModelPricing holds USD prices per million tokens for one model.
type ModelPricing struct {
	Input  float64
	Output float64
}

// DefaultPricing returns the built-in per-model price table.
func DefaultPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
		"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
		"gemini-2.0-flash": {Input: 0.15, Output: 0.60},
		"gemini-1.5-flash": {Input: 0.075, Output: 0.30},
		"gemini-1.5-pro":   {Input: 1.25, Output: 5.00},
	}
}

// fallbackModel prices unknown models. Unknown models cost something rather
// than failing the record.
const fallbackModel = "gemini-2.0-flash"

// pricingFor resolves a model to its pricing, trying an exact match, then a
// prefix match (versioned model names), then the fallback.
func pricingFor(table map[string]ModelPricing, model string) ModelPricing {
	if p, ok := table[model]; ok {
		return p
	}
	for name, p := range table {
		if strings.HasPrefix(model, name) {
			return p
		}
	}
	return table[fallbackModel]
}

// estimateCost converts token counts to an estimated USD cost, rounded to
// six decimal places.
func estimateCost(table map[string]ModelPricing, model string, tokensIn, tokensOut int) float64 {
	p := pricingFor(table, model)
	cost := float64(tokensIn)/1_000_000*p.Input + float64(tokensOut)/1_000_000*p.Output
	return math.Round(cost*1_000_000) / 1_000_000
}
