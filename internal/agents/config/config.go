package config

import "time"

// LLMStage names which agent a call belongs to
type LLMStage string

const (
	LLMStageRequirements LLMStage = "requirements"
	LLMStageQuery        LLMStage = "query"
)

// Config contains configuration shared by the agents
type Config struct {
	Model    string        // empty = provider default
	Timeout  time.Duration // per LLM call; 0 = no extra deadline
	CacheTTL time.Duration
}

// LLMParameters are the sampling settings for one stage
type LLMParameters struct {
	Temperature   float64
	MaxTokens     int
	ReasoningMode string
}

// GetLLMParameters returns the parameters for each stage
func GetLLMParameters(stage LLMStage) LLMParameters {
	switch stage {
	case LLMStageRequirements:
		// Extraction: deterministic structured output
		return LLMParameters{
			Temperature:   0.1,
			MaxTokens:     1000,
			ReasoningMode: "minimal",
		}

	case LLMStageQuery:
		// Query answers: some latitude in wording
		return LLMParameters{
			Temperature:   0.7,
			MaxTokens:     1000,
			ReasoningMode: "low",
		}

	default:
		return LLMParameters{MaxTokens: 1000, ReasoningMode: "low"}
	}
}
