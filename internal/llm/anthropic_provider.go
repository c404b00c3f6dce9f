package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/getsentry/sentry-go"
)

const (
	providerNameAnthropic = "anthropic"

	// DefaultClaudeModel is used when a request names no model
	DefaultClaudeModel     = "claude-3-sonnet-20240229"
	defaultClaudeMaxTokens = 4000
)

// AnthropicProvider implements the Provider interface using the Claude Messages API
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Claude provider
func NewAnthropicProvider(apiKey string, opts ...option.RequestOption) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return providerNameAnthropic
}

func (p *AnthropicProvider) buildParams(request *GenerationRequest) anthropic.MessageNewParams {
	model := request.Model
	if model == "" {
		model = DefaultClaudeModel
	}
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	var system strings.Builder
	system.WriteString(request.SystemPrompt)
	var msgs []anthropic.MessageParam
	for _, msg := range messages(request.InputArray) {
		switch msg[0] {
		case developerRole, systemRole:
			// Claude takes system text separately from the turn list
			system.WriteString("\n\n")
			system.WriteString(msg[1])
		case assistantRole:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg[1])))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg[1])))
		}
	}
	system.WriteString(schemaInstruction(request.OutputSchema))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if s := strings.TrimSpace(system.String()); s != "" {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}
	if request.TopP > 0 {
		params.TopP = anthropic.Float(request.TopP)
	}
	return params
}

// Generate implements non-streaming generation
func (p *AnthropicProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	params := p.buildParams(request)
	log.Printf("🏗️  CLAUDE GENERATION REQUEST STARTED (Model: %s)", params.Model)

	transaction := sentry.StartTransaction(ctx, "anthropic.generate")
	defer transaction.Finish()

	transaction.SetTag("model", string(params.Model))
	transaction.SetTag("provider", providerNameAnthropic)

	span := transaction.StartChild("anthropic.api_call")
	msg, err := p.client.Messages.New(ctx, params)
	span.Finish()

	if err != nil {
		log.Printf("❌ CLAUDE REQUEST FAILED after %v: %v", time.Since(startTime), err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	output := cleanJSONOutput(text.String())
	if output == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyOutput)
	}

	usage := Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	logUsageStats(providerNameAnthropic, usage)
	log.Printf("✅ CLAUDE GENERATION COMPLETED in %v (stop: %s)", time.Since(startTime), msg.StopReason)

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: output,
		Usage:     usage,
		Provider:  providerNameAnthropic,
		Model:     string(params.Model),
	}, nil
}

// GenerateStream implements streaming generation
func (p *AnthropicProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()
	params := p.buildParams(request)
	log.Printf("🏗️  CLAUDE STREAMING REQUEST STARTED (Model: %s)", params.Model)

	transaction := sentry.StartTransaction(ctx, "anthropic.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", string(params.Model))
	transaction.SetTag("provider", providerNameAnthropic)
	transaction.SetTag("streaming", "true")

	if err := emit(callback, StreamEvent{Type: EventStarted, Message: "Starting generation..."}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	message := anthropic.Message{}
	var accumulated strings.Builder
	eventCount := 0

	for stream.Next() {
		event := stream.Current()
		eventCount++
		if err := message.Accumulate(event); err != nil {
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("anthropic stream accumulate: %w", err)
		}

		if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				accumulated.WriteString(delta.Text)
				if err := emit(callback, StreamEvent{
					Type:    EventTextDelta,
					Message: delta.Text,
					Data:    map[string]interface{}{"accumulated_length": accumulated.Len()},
				}); err != nil {
					transaction.SetTag("success", "false")
					return nil, err
				}
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
		log.Printf("❌ CLAUDE stream error: %v", err)
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("anthropic stream error: %w", err)
	}

	usage := Usage{
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}
	if err := emit(callback, StreamEvent{
		Type:    EventCompleted,
		Message: "Generation complete",
		Data:    map[string]interface{}{"total_length": accumulated.Len(), "event_count": eventCount},
	}); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}
	log.Printf("✅ CLAUDE STREAMING COMPLETE: %d events in %v", eventCount, time.Since(startTime))

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: cleanJSONOutput(accumulated.String()),
		Usage:     usage,
		Provider:  providerNameAnthropic,
		Model:     string(params.Model),
	}, nil
}
