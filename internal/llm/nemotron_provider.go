package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	providerNameNemotron = "nemotron"

	// DefaultNemotronModel is the NVIDIA-hosted Nemotron instruct model
	DefaultNemotronModel = "nvidia/llama-3.1-nemotron-70b-instruct"

	nemotronTemperature = 0.7
	nemotronTopP        = 0.9
	nemotronMaxTokens   = 1024
)

// NemotronProvider talks to NVIDIA's OpenAI-compatible chat completions endpoint
type NemotronProvider struct {
	client *openai.Client
}

// NewNemotronProvider creates a provider against baseURL (e.g. https://integrate.api.nvidia.com/v1)
func NewNemotronProvider(apiKey, baseURL string, opts ...option.RequestOption) *NemotronProvider {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)}, opts...)
	client := openai.NewClient(all...)
	return &NemotronProvider{client: &client}
}

// Name returns the provider name
func (p *NemotronProvider) Name() string {
	return providerNameNemotron
}

func (p *NemotronProvider) buildParams(request *GenerationRequest) openai.ChatCompletionNewParams {
	model := request.Model
	if model == "" {
		model = DefaultNemotronModel
	}

	system := request.SystemPrompt + schemaInstruction(request.OutputSchema)
	var msgs []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	for _, msg := range messages(request.InputArray) {
		switch msg[0] {
		case developerRole, systemRole:
			msgs = append(msgs, openai.SystemMessage(msg[1]))
		case assistantRole:
			msgs = append(msgs, openai.AssistantMessage(msg[1]))
		default:
			msgs = append(msgs, openai.UserMessage(msg[1]))
		}
	}

	temperature, topP, maxTokens := request.Temperature, request.TopP, request.MaxTokens
	if temperature <= 0 {
		temperature = nemotronTemperature
	}
	if topP <= 0 {
		topP = nemotronTopP
	}
	if maxTokens <= 0 {
		maxTokens = nemotronMaxTokens
	}

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(topP),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}
}

// Generate implements non-streaming generation
func (p *NemotronProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	params := p.buildParams(request)
	log.Printf("🏗️  NEMOTRON GENERATION REQUEST STARTED (Model: %s)", params.Model)

	transaction := sentry.StartTransaction(ctx, "nemotron.generate")
	defer transaction.Finish()

	transaction.SetTag("model", string(params.Model))
	transaction.SetTag("provider", providerNameNemotron)

	span := transaction.StartChild("nemotron.api_call")
	resp, err := p.client.Chat.Completions.New(ctx, params)
	span.Finish()

	if err != nil {
		log.Printf("❌ NEMOTRON REQUEST FAILED after %v: %v", time.Since(startTime), err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("nemotron request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("nemotron: %w", ErrEmptyOutput)
	}
	output := cleanJSONOutput(resp.Choices[0].Message.Content)
	if output == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("nemotron: %w", ErrEmptyOutput)
	}

	usage := Usage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	logUsageStats(providerNameNemotron, usage)
	log.Printf("✅ NEMOTRON GENERATION COMPLETED in %v", time.Since(startTime))

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: output,
		Usage:     usage,
		Provider:  providerNameNemotron,
		Model:     string(params.Model),
	}, nil
}

// GenerateStream implements streaming generation
func (p *NemotronProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()
	params := p.buildParams(request)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	transaction := sentry.StartTransaction(ctx, "nemotron.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", string(params.Model))
	transaction.SetTag("provider", providerNameNemotron)
	transaction.SetTag("streaming", "true")

	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Starting generation..."}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	var accumulated strings.Builder
	eventCount := 0

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		eventCount++

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			delta := chunk.Choices[0].Delta.Content
			accumulated.WriteString(delta)
			if err := emit(callback, StreamEvent{
				Type:    EventTextDelta,
				Message: delta,
				Data:    map[string]interface{}{"accumulated_length": accumulated.Len()},
			}); err != nil {
				transaction.SetTag("success", "false")
				return nil, err
			}
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
				transaction.SetTag("success", "false")
				return nil, err
			}
		}
	}

	if err := stream.Err(); err != nil {
		log.Printf("❌ NEMOTRON stream error: %v", err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("nemotron stream error: %w", err)
	}

	usage := Usage{
		InputTokens:  int(acc.Usage.PromptTokens),
		OutputTokens: int(acc.Usage.CompletionTokens),
		TotalTokens:  int(acc.Usage.TotalTokens),
	}
	if err := emit(callback, StreamEvent{
		Type:    EventCompleted,
		Message: "Generation complete",
		Data:    map[string]interface{}{"total_length": accumulated.Len(), "event_count": eventCount},
	}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: cleanJSONOutput(accumulated.String()),
		Usage:     usage,
		Provider:  providerNameNemotron,
		Model:     string(params.Model),
	}, nil
}
