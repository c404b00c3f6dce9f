package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProviderNotConfigured is returned when the API key for a provider is missing
	ErrProviderNotConfigured = errors.New("llm provider not configured")

	// ErrEmptyOutput is returned when a provider answers without any text
	ErrEmptyOutput = errors.New("llm returned no output")

	// ErrStreamAborted is returned when a stream callback rejects an event
	ErrStreamAborted = errors.New("llm stream aborted by callback")
)

// Provider defines the interface for LLM providers
// Providers that support it enforce OutputSchema natively; the rest receive
// the schema as an instruction and callers validate with ValidateOutput.
type Provider interface {
	// Generate runs one request and returns the full text output
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// GenerateStream runs one request, calling callback for each text delta
	GenerateStream(ctx context.Context, request *GenerationRequest, callback StreamCallback) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "anthropic", "openai")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model         string
	InputArray    []map[string]any // {"role": "user"|"assistant"|"developer", "content": "..."}
	ReasoningMode string
	SystemPrompt  string

	// Sampling; zero values mean provider defaults
	Temperature float64
	TopP        float64
	MaxTokens   int

	// Structured output schema (JSON)
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// Usage is token accounting normalised across providers
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	TotalTokens     int `json:"total_tokens"`
}

// AsMap returns the usage in the shape logger and Langfuse helpers expect
func (u Usage) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"` // Text output, markdown fences stripped
	Usage     Usage  `json:"usage"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// StreamCallback is called for each streaming event
type StreamCallback func(event StreamEvent) error

// StreamEvent represents an event emitted during streaming
type StreamEvent struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Stream event types
const (
	EventStarted   = "started"
	EventTextDelta = "text_delta"
	EventHeartbeat = "heartbeat"
	EventCompleted = "completed"
)

// emit forwards an event to the callback. A callback error ends the stream.
func emit(callback StreamCallback, event StreamEvent) error {
	if callback == nil {
		return nil
	}
	if err := callback(event); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamAborted, err)
	}
	return nil
}
