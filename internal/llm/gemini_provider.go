package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	maxLogEventCount   = 5
	geminiUserRole     = "user"
	geminiModelRole    = "model"

	// DefaultGeminiModel is used when a request names no model
	DefaultGeminiModel = "gemini-2.5-flash"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

func (p *GeminiProvider) buildConfig(request *GenerationRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if request.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		}
	}
	if request.Temperature > 0 {
		t := float32(request.Temperature)
		config.Temperature = &t
	}
	if request.TopP > 0 {
		tp := float32(request.TopP)
		config.TopP = &tp
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	// Add JSON schema for structured output if provided
	if request.OutputSchema != nil {
		config.ResponseMIMEType = mimeTypeJSON
		config.ResponseSchema = convertSchemaToGemini(request.OutputSchema.Schema)
	}
	return config
}

func modelOrDefault(model string) string {
	if model == "" {
		return DefaultGeminiModel
	}
	return model
}

// Generate implements non-streaming generation using Gemini's API
func (p *GeminiProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	model := modelOrDefault(request.Model)
	log.Printf("🏗️  GEMINI GENERATION REQUEST STARTED (Model: %s)", model)

	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()

	transaction.SetTag("model", model)
	transaction.SetTag("provider", providerNameGemini)

	contents := p.buildGeminiContents(request.InputArray)

	span := transaction.StartChild("gemini.api_call")
	result, err := p.client.Models.GenerateContent(ctx, model, contents, p.buildConfig(request))
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI REQUEST FAILED after %v: %v", time.Since(startTime), err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	textOutput := cleanJSONOutput(result.Text())
	log.Printf("📥 GEMINI RESPONSE: output_length=%d", len(textOutput))
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini: %w", ErrEmptyOutput)
	}

	usage := usageFromGemini(result.UsageMetadata)
	logUsageStats(providerNameGemini, usage)
	log.Printf("✅ GEMINI GENERATION COMPLETED in %v", time.Since(startTime))

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: textOutput,
		Usage:     usage,
		Provider:  providerNameGemini,
		Model:     model,
	}, nil
}

// GenerateStream implements streaming generation for Gemini
func (p *GeminiProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()
	model := modelOrDefault(request.Model)
	log.Printf("🏗️  GEMINI STREAMING GENERATION REQUEST STARTED (Model: %s)", model)

	transaction := sentry.StartTransaction(ctx, "gemini.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", model)
	transaction.SetTag("provider", providerNameGemini)
	transaction.SetTag("streaming", "true")

	contents := p.buildGeminiContents(request.InputArray)
	iter := p.client.Models.GenerateContentStream(ctx, model, contents, p.buildConfig(request))

	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Generating output..."}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	var accumulated strings.Builder
	var finalUsage *genai.GenerateContentResponseUsageMetadata
	eventCount := 0

	// Iterate over stream using Go 1.23+ iterator pattern
	for chunk, err := range iter {
		if err != nil {
			log.Printf("❌ GEMINI STREAMING ERROR: %v", err)
			transaction.SetTag("success", "false")
			sentry.CaptureException(err)
			return nil, fmt.Errorf("gemini stream error: %w", err)
		}
		eventCount++

		if text := chunk.Text(); text != "" {
			accumulated.WriteString(text)
			if err := emit(callback, StreamEvent{
				Type:    EventTextDelta,
				Message: text,
				Data:    map[string]interface{}{"accumulated_length": accumulated.Len()},
			}); err != nil {
				transaction.SetTag("success", "false")
				return nil, err
			}
			if eventCount <= maxLogEventCount {
				log.Printf("✅ Gemini chunk #%d: +%d chars (total: %d)", eventCount, len(text), accumulated.Len())
			}
		}

		if chunk.UsageMetadata != nil {
			finalUsage = chunk.UsageMetadata
		}
	}

	if err := emit(callback, StreamEvent{
		Type:    EventCompleted,
		Message: "Generation complete",
		Data:    map[string]interface{}{"total_length": accumulated.Len(), "event_count": eventCount},
	}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}
	log.Printf("⏱️  GEMINI STREAMING TIME: %v", time.Since(startTime))

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: cleanJSONOutput(accumulated.String()),
		Usage:     usageFromGemini(finalUsage),
		Provider:  providerNameGemini,
		Model:     model,
	}, nil
}

// buildGeminiContents converts our input array to Gemini Content format
func (p *GeminiProvider) buildGeminiContents(inputArray []map[string]any) []*genai.Content {
	var contents []*genai.Content

	for _, msg := range messages(inputArray) {
		// Gemini only knows "user" and "model"; system text goes in as user
		role := geminiUserRole
		if msg[0] == assistantRole {
			role = geminiModelRole
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg[1]}},
		})
	}

	return contents
}

func usageFromGemini(meta *genai.GenerateContentResponseUsageMetadata) Usage {
	if meta == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:     int(meta.PromptTokenCount),
		OutputTokens:    int(meta.CandidatesTokenCount),
		ReasoningTokens: int(meta.ThoughtsTokenCount),
		TotalTokens:     int(meta.TotalTokenCount),
	}
}

// convertSchemaToGemini maps a JSON Schema object onto genai.Schema.
// Unsupported keywords (additionalProperties, $ref) are dropped.
func convertSchemaToGemini(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{}

	switch t := schema["type"].(type) {
	case string:
		out.Type = geminiType(t)
	case []any:
		// ["number", "null"] style nullable unions
		for _, v := range t {
			s, _ := v.(string)
			if s == "null" {
				nullable := true
				out.Nullable = &nullable
			} else if s != "" {
				out.Type = geminiType(s)
			}
		}
	}

	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if min, ok := toFloat(schema["minimum"]); ok {
		out.Minimum = &min
	}
	if max, ok := toFloat(schema["maximum"]); ok {
		out.Maximum = &max
	}
	out.Enum = toStrings(schema["enum"])
	out.Required = toStrings(schema["required"])

	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = convertSchemaToGemini(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = convertSchemaToGemini(items)
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
