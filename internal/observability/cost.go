package observability

import (
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	// Claude 3 Sonnet pricing
	claudeSonnetInputPrice  = 0.003
	claudeSonnetOutputPrice = 0.015

	// Claude 3 Haiku pricing
	claudeHaikuInputPrice  = 0.00025
	claudeHaikuOutputPrice = 0.00125

	// Nemotron 70B on NVIDIA NIM
	nemotronInputPrice  = 0.00035
	nemotronOutputPrice = 0.0004

	// GPT-5.1 pricing
	gpt51InputPrice  = 0.001
	gpt51OutputPrice = 0.003

	// GPT-4o-mini pricing
	gpt4oMiniInputPrice  = 0.00015
	gpt4oMiniOutputPrice = 0.0006

	// Gemini 2.5 Flash pricing
	geminiFlashInputPrice  = 0.0003
	geminiFlashOutputPrice = 0.0025

	defaultPricingModel = "claude-3-sonnet-20240229"
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for all models
var PricingTable = map[string]ModelPricing{
	"claude-3-sonnet-20240229": {
		InputPricePer1K:  claudeSonnetInputPrice,
		OutputPricePer1K: claudeSonnetOutputPrice,
	},
	"claude-3-haiku-20240307": {
		InputPricePer1K:  claudeHaikuInputPrice,
		OutputPricePer1K: claudeHaikuOutputPrice,
	},
	"nvidia/llama-3.1-nemotron-70b-instruct": {
		InputPricePer1K:  nemotronInputPrice,
		OutputPricePer1K: nemotronOutputPrice,
	},
	"gpt-5.1": {
		InputPricePer1K:  gpt51InputPrice,
		OutputPricePer1K: gpt51OutputPrice,
	},
	"gpt-4o-mini": {
		InputPricePer1K:  gpt4oMiniInputPrice,
		OutputPricePer1K: gpt4oMiniOutputPrice,
	},
	"gemini-2.5-flash": {
		InputPricePer1K:  geminiFlashInputPrice,
		OutputPricePer1K: geminiFlashOutputPrice,
	},
}

// pricingFor returns exact pricing, then the longest table key that prefixes model
func pricingFor(model string) ModelPricing {
	if p, ok := PricingTable[model]; ok {
		return p
	}
	best, bestLen := PricingTable[defaultPricingModel], 0
	for name, p := range PricingTable {
		if strings.HasPrefix(model, name) && len(name) > bestLen {
			best, bestLen = p, len(name)
		}
	}
	return best
}

// CalculateCost calculates the cost in USD for one LLM call
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing := pricingFor(model)

	inputCost := (float64(usage.InputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(usage.OutputTokens) / tokensPerKilo) * pricing.OutputPricePer1K

	// Reasoning tokens are billed at the input rate
	reasoningCost := 0.0
	if usage.ReasoningTokens > 0 {
		reasoningCost = (float64(usage.ReasoningTokens) / tokensPerKilo) * pricing.InputPricePer1K
	}

	return inputCost + outputCost + reasoningCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
