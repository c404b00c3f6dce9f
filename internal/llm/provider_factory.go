package llm

import (
	"context"
	"fmt"
	"strings"
)

// FactoryConfig carries the credentials for every provider the factory can build
type FactoryConfig struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	NvidiaAPIKey    string
	NvidiaBaseURL   string
	GeminiAPIKey    string
}

// ProviderFactory creates providers based on model name or explicit provider choice
type ProviderFactory struct {
	cfg FactoryConfig
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg FactoryConfig) *ProviderFactory {
	return &ProviderFactory{cfg: cfg}
}

// Configured reports whether at least one provider has credentials
func (f *ProviderFactory) Configured() bool {
	return f.cfg.AnthropicAPIKey != "" || f.cfg.OpenAIAPIKey != "" ||
		f.cfg.NvidiaAPIKey != "" || f.cfg.GeminiAPIKey != ""
}

// Preferred returns the first provider with credentials, in the order
// anthropic, nemotron, openai, gemini. Empty when none is configured.
func (f *ProviderFactory) Preferred() string {
	switch {
	case f.cfg.AnthropicAPIKey != "":
		return providerNameAnthropic
	case f.cfg.NvidiaAPIKey != "":
		return providerNameNemotron
	case f.cfg.OpenAIAPIKey != "":
		return providerNameOpenAI
	case f.cfg.GeminiAPIKey != "":
		return providerNameGemini
	default:
		return ""
	}
}

// GetProvider returns the appropriate provider for the given model/provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, model, providerName string) (Provider, error) {
	// If provider is explicitly specified, use that
	if providerName != "" {
		return f.getProviderByName(ctx, providerName)
	}

	// Otherwise, infer from model name
	return f.getProviderByModel(ctx, model)
}

// getProviderByName creates a provider by explicit name
func (f *ProviderFactory) getProviderByName(ctx context.Context, providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case providerNameAnthropic, "claude":
		return f.anthropic()
	case providerNameOpenAI:
		return f.openai()
	case providerNameNemotron, "nvidia":
		return f.nemotron()
	case providerNameGemini:
		return f.gemini(ctx)
	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: anthropic, openai, nemotron, gemini)", providerName)
	}
}

// getProviderByModel infers provider from model name
func (f *ProviderFactory) getProviderByModel(ctx context.Context, model string) (Provider, error) {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "claude-"):
		return f.anthropic()
	case strings.HasPrefix(modelLower, "gpt-"), strings.HasPrefix(modelLower, "o3"), strings.HasPrefix(modelLower, "o4"):
		return f.openai()
	case strings.HasPrefix(modelLower, "nvidia/"), strings.Contains(modelLower, "nemotron"):
		return f.nemotron()
	case strings.HasPrefix(modelLower, "gemini-"):
		return f.gemini(ctx)
	}

	// Default to Claude for unknown models
	return f.anthropic()
}

func (f *ProviderFactory) anthropic() (Provider, error) {
	if f.cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrProviderNotConfigured)
	}
	return NewAnthropicProvider(f.cfg.AnthropicAPIKey), nil
}

func (f *ProviderFactory) openai() (Provider, error) {
	if f.cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrProviderNotConfigured)
	}
	return NewOpenAIProvider(f.cfg.OpenAIAPIKey), nil
}

func (f *ProviderFactory) nemotron() (Provider, error) {
	if f.cfg.NvidiaAPIKey == "" {
		return nil, fmt.Errorf("nemotron: %w", ErrProviderNotConfigured)
	}
	return NewNemotronProvider(f.cfg.NvidiaAPIKey, f.cfg.NvidiaBaseURL), nil
}

func (f *ProviderFactory) gemini(ctx context.Context) (Provider, error) {
	if f.cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrProviderNotConfigured)
	}
	return NewGeminiProvider(ctx, f.cfg.GeminiAPIKey)
}
