package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const (
	// Role constants
	userRole      = "user"
	assistantRole = "assistant"
	developerRole = "developer"
	systemRole    = "system"

	// Reasoning effort levels
	reasoningNone    = "none"
	reasoningMinimal = "minimal"
	reasoningLow     = "low"
	reasoningMedium  = "medium"
	reasoningHigh    = "high"

	// Provider name
	providerNameOpenAI = "openai"

	// DefaultOpenAIModel is used when a request names no model
	DefaultOpenAIModel = "gpt-4o-mini"

	maxLogEventCountOpenAI = 5
)

// modelsWithReasoning accept the reasoning parameter and reject temperature
var modelsWithReasoning = map[string]bool{
	"gpt-5":        true,
	"gpt-5-mini":   true,
	"gpt-5-nano":   true,
	"gpt-5.1":      true,
	"gpt-5.1-mini": true,
	"gpt-5.2":      true,
	"o3":           true,
	"o4-mini":      true,
}

// OpenAIProvider implements the Provider interface using OpenAI's Responses API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate implements non-streaming generation using OpenAI's Responses API
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	request = withDefaultModel(request, DefaultOpenAIModel)
	startTime := time.Now()
	log.Printf("🏗️  OPENAI GENERATION REQUEST STARTED (Model: %s)", request.Model)

	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("structured", fmt.Sprintf("%t", request.OutputSchema != nil))

	params := p.buildRequestParams(request)

	span := transaction.StartChild("openai.api_call")
	resp, err := p.client.Responses.New(ctx, params)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", time.Since(startTime), err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	textOutput := cleanJSONOutput(resp.OutputText())
	log.Printf("📥 OPENAI RESPONSE: output_length=%d, output_items=%d, tokens=%d",
		len(textOutput), len(resp.Output), resp.Usage.TotalTokens)

	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai: %w", ErrEmptyOutput)
	}

	usage := usageFromResponses(resp.Usage)
	logUsageStats(providerNameOpenAI, usage)
	log.Printf("✅ OPENAI GENERATION COMPLETED in %v", time.Since(startTime))

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: textOutput,
		Usage:     usage,
		Provider:  providerNameOpenAI,
		Model:     request.Model,
	}, nil
}

// buildRequestParams converts GenerationRequest to OpenAI-specific ResponseNewParams
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	inputItems := responses.ResponseInputParam{}

	for _, msg := range messages(request.InputArray) {
		var roleEnum responses.EasyInputMessageRole
		switch msg[0] {
		case developerRole, systemRole:
			roleEnum = responses.EasyInputMessageRoleDeveloper
		case assistantRole:
			roleEnum = responses.EasyInputMessageRoleAssistant
		default:
			roleEnum = responses.EasyInputMessageRoleUser
		}

		inputItems = append(inputItems,
			responses.ResponseInputItemParamOfMessage(msg[1], roleEnum),
		)
	}

	params := responses.ResponseNewParams{
		Model: request.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
		Instructions: openai.String(request.SystemPrompt),
	}

	if request.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(request.MaxTokens))
	}

	// Only include Reasoning parameter for models that support it
	if modelsWithReasoning[request.Model] {
		params.Reasoning = shared.ReasoningParam{
			Effort: reasoningEffort(request.ReasoningMode),
		}
	} else {
		if request.Temperature > 0 {
			params.Temperature = openai.Float(request.Temperature)
		}
		if request.TopP > 0 {
			params.TopP = openai.Float(request.TopP)
		}
	}

	if request.OutputSchema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(
				request.OutputSchema.Name,
				request.OutputSchema.Schema,
			),
		}
		log.Printf("📋 JSON SCHEMA CONFIGURED: %s", request.OutputSchema.Name)
	}

	return params
}

func reasoningEffort(mode string) shared.ReasoningEffort {
	switch mode {
	case reasoningMinimal:
		return shared.ReasoningEffort("minimal")
	case reasoningLow:
		return responses.ReasoningEffortLow
	case reasoningMedium:
		return responses.ReasoningEffortMedium
	case reasoningHigh:
		return responses.ReasoningEffortHigh
	case reasoningNone:
		return shared.ReasoningEffort("none")
	default:
		return responses.ReasoningEffortLow
	}
}

func usageFromResponses(u responses.ResponseUsage) Usage {
	return Usage{
		InputTokens:     int(u.InputTokens),
		OutputTokens:    int(u.OutputTokens),
		ReasoningTokens: int(u.OutputTokensDetails.ReasoningTokens),
		TotalTokens:     int(u.TotalTokens),
	}
}

// logUsageStats logs token usage statistics
func logUsageStats(provider string, usage Usage) {
	log.Printf("📊 %s USAGE: input=%d, output=%d, reasoning=%d, total=%d",
		provider, usage.InputTokens, usage.OutputTokens, usage.ReasoningTokens, usage.TotalTokens)
}

// GenerateStream implements streaming generation using OpenAI's Responses API
// It streams text chunks as they arrive from the LLM and calls the callback for each chunk
func (p *OpenAIProvider) GenerateStream(
	ctx context.Context,
	request *GenerationRequest,
	callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()
	request = withDefaultModel(request, DefaultOpenAIModel)
	log.Printf("🏗️  OPENAI STREAMING GENERATION REQUEST STARTED (Model: %s)", request.Model)

	transaction := sentry.StartTransaction(ctx, "openai.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("streaming", "true")

	params := p.buildRequestParams(request)
	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Starting generation..."}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	span := transaction.StartChild("openai.api_stream")
	stream := p.client.Responses.NewStreaming(ctx, params)
	defer stream.Close()

	var accumulatedText string
	var finalResponse *responses.Response
	eventCount := 0

	for stream.Next() {
		event := stream.Current()
		eventCount++

		if eventCount <= maxLogEventCountOpenAI {
			log.Printf("📥 Stream event #%d: type=%s", eventCount, event.Type)
		}

		switch event.Type {
		case "response.output_text.delta":
			delta := event.AsResponseOutputTextDelta().Delta
			if delta != "" {
				accumulatedText += delta
				if err := emit(callback, StreamEvent{
					Type:    EventTextDelta,
					Message: delta,
					Data: map[string]interface{}{
						"accumulated_length": len(accumulatedText),
					},
				}); err != nil {
					span.Finish()
					transaction.SetTag("success", "false")
					return nil, err
				}
			}

		case "response.completed":
			completedEvent := event.AsResponseCompleted()
			finalResponse = &completedEvent.Response

		case "response.failed":
			failedEvent := event.AsResponseFailed()
			span.Finish()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("streaming failed: %s", failedEvent.Response.Error.Message)

		case "error":
			errorEvent := event.AsError()
			span.Finish()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("stream error: %s", errorEvent.Message)
		}

		if eventCount%heartbeatEvery == 0 {
			if err := emit(callback, StreamEvent{
				Type:    EventHeartbeat,
				Message: "Processing...",
				Data: map[string]interface{}{
					"events_received": eventCount,
					"elapsed_seconds": int(time.Since(startTime).Seconds()),
				},
			}); err != nil {
				span.Finish()
				transaction.SetTag("success", "false")
				return nil, err
			}
		}
	}

	span.Finish()

	if err := stream.Err(); err != nil {
		log.Printf("❌ Stream error: %v", err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("stream error: %w", err)
	}

	log.Printf("✅ OPENAI STREAMING COMPLETE: %d events, %d chars, %v duration",
		eventCount, len(accumulatedText), time.Since(startTime))

	if err := emit(callback, StreamEvent{
		Type:    EventCompleted,
		Message: "Generation complete",
		Data: map[string]interface{}{
			"total_length": len(accumulatedText),
			"event_count":  eventCount,
		},
	}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	response := &GenerationResponse{
		RawOutput: cleanJSONOutput(accumulatedText),
		Provider:  providerNameOpenAI,
		Model:     request.Model,
	}
	if finalResponse != nil {
		response.Usage = usageFromResponses(finalResponse.Usage)
		logUsageStats(providerNameOpenAI, response.Usage)
	}

	transaction.SetTag("success", "true")
	return response, nil
}
