package requirements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/cache"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	calls        atomic.Int32
	generateFunc func(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error)
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	m.calls.Add(1)
	return m.generateFunc(ctx, request)
}

// GenerateStream replays the Generate output as two text deltas
func (m *mockProvider) GenerateStream(
	ctx context.Context, request *llm.GenerationRequest, cb llm.StreamCallback,
) (*llm.GenerationResponse, error) {
	resp, err := m.Generate(ctx, request)
	if err != nil {
		return nil, err
	}
	half := len(resp.RawOutput) / 2
	for _, d := range []string{resp.RawOutput[:half], resp.RawOutput[half:]} {
		if err := cb(llm.StreamEvent{Type: llm.EventTextDelta, Message: d}); err != nil {
			return nil, fmt.Errorf("%w: %v", llm.ErrStreamAborted, err)
		}
	}
	return resp, nil
}

const validOutput = `{
  "total_area": 120,
  "rooms": [
    {"type": "bedroom", "count": 2, "min_area": 10, "max_area": 20},
    {"type": "bedroom", "count": 1, "min_area": 0, "max_area": 0},
    {"type": "bathroom", "count": 1, "min_area": 4, "max_area": 8},
    {"type": "kitchen", "count": 1, "min_area": 0, "max_area": 0}
  ],
  "style": "modern",
  "constraints": {"min_room_area": 0, "max_room_area": 0, "ceiling_height": 3}
}`

func respond(raw string) func(context.Context, *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	return func(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
		return &llm.GenerationResponse{
			RawOutput: raw,
			Provider:  "mock",
			Model:     "mock-1",
			Usage:     llm.Usage{InputTokens: 100, OutputTokens: 40, TotalTokens: 140},
		}, nil
	}
}

func TestExtract_FoldsRoomCounts(t *testing.T) {
	p := &mockProvider{generateFunc: respond(validOutput)}
	agent := NewAgent(p, config.Config{CacheTTL: time.Minute}, cache.NewMemory())

	result, err := agent.Extract(context.Background(), "A modern 120 m² house with three bedrooms")
	require.NoError(t, err)

	req := result.Requirements
	assert.Equal(t, 120.0, req.TotalArea)
	assert.Equal(t, 3, req.Bedrooms)
	assert.Equal(t, 1, req.Bathrooms)
	assert.Equal(t, "modern", req.Style)
	assert.Equal(t, "A modern 120 m² house with three bedrooms", req.AdditionalRequirements)
	assert.Len(t, req.Rooms, 4)
	assert.Equal(t, 20.0, req.Rooms[0].MaxArea)
	require.NotNil(t, req.Constraints)
	assert.Equal(t, 3.0, req.Constraints.CeilingHeight)

	assert.False(t, result.Cached)
	assert.Equal(t, "mock", result.Provider)
	assert.Equal(t, "mock-1", result.Model)
	assert.Equal(t, 140, result.Usage.TotalTokens)
}

func TestExtract_PassesSchemaAndStageParameters(t *testing.T) {
	var seen *llm.GenerationRequest
	p := &mockProvider{generateFunc: func(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
		seen = request
		return respond(validOutput)(ctx, request)
	}}
	agent := NewAgent(p, config.Config{Model: "mock-1"}, nil)

	_, err := agent.Extract(context.Background(), "two bedroom flat")
	require.NoError(t, err)

	require.NotNil(t, seen)
	require.NotNil(t, seen.OutputSchema)
	assert.Equal(t, "building_requirements", seen.OutputSchema.Name)
	assert.Equal(t, "mock-1", seen.Model)
	assert.Equal(t, 0.1, seen.Temperature)
	assert.NotEmpty(t, seen.SystemPrompt)
	require.Len(t, seen.InputArray, 1)
	assert.Contains(t, seen.InputArray[0]["content"], "two bedroom flat")
}

func TestExtract_CachesByNormalisedDescription(t *testing.T) {
	p := &mockProvider{generateFunc: respond(validOutput)}
	agent := NewAgent(p, config.Config{CacheTTL: time.Minute}, cache.NewMemory())
	ctx := context.Background()

	first, err := agent.Extract(ctx, "Three bedroom house")
	require.NoError(t, err)
	second, err := agent.Extract(ctx, "  three   BEDROOM house ")
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, first.Requirements.Bedrooms, second.Requirements.Bedrooms)
	assert.Equal(t, "mock", second.Provider)
	assert.Equal(t, 140, first.Usage.TotalTokens)
	assert.Zero(t, second.Usage.TotalTokens)
}

func TestExtract_SharedLoadReportsUsage(t *testing.T) {
	release := make(chan struct{})
	p := &mockProvider{generateFunc: func(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
		<-release
		return respond(validOutput)(ctx, request)
	}}
	agent := NewAgent(p, config.Config{CacheTTL: time.Minute}, cache.NewMemory())

	const callers = 4
	results := make([]*Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := agent.Extract(context.Background(), "three bedroom house")
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, result := range results {
		require.NotNil(t, result)
		if result.Cached {
			assert.Zero(t, result.Usage.TotalTokens)
			continue
		}
		assert.Equal(t, 140, result.Usage.TotalTokens)
		assert.Equal(t, 100, result.Usage.InputTokens)
	}
}

func TestExtract_RejectsOutputOutsideSchema(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I think it has three bedrooms"},
		{"missing rooms", `{"total_area": 100, "style": "modern", "constraints": {"min_room_area": 0, "max_room_area": 0, "ceiling_height": 2.8}}`},
		{"area too large", `{"total_area": 1e9, "rooms": [], "style": "", "constraints": {"min_room_area": 0, "max_room_area": 0, "ceiling_height": 2.8}}`},
		{"unknown room type", `{"total_area": 100, "rooms": [{"type": "garage", "count": 1, "min_area": 0, "max_area": 0}], "style": "", "constraints": {"min_room_area": 0, "max_room_area": 0, "ceiling_height": 2.8}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{generateFunc: respond(tt.raw)}
			agent := NewAgent(p, config.Config{}, nil)

			_, err := agent.Extract(context.Background(), "house")
			require.Error(t, err)
			assert.ErrorIs(t, err, llm.ErrSchemaValidation)
		})
	}
}

func TestExtract_ProviderErrorIsNotCached(t *testing.T) {
	fail := true
	p := &mockProvider{generateFunc: func(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
		if fail {
			return nil, errors.New("rate limited")
		}
		return respond(validOutput)(ctx, request)
	}}
	agent := NewAgent(p, config.Config{CacheTTL: time.Minute}, cache.NewMemory())

	_, err := agent.Extract(context.Background(), "house")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	fail = false
	result, err := agent.Extract(context.Background(), "house")
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestExtract_NoProvider(t *testing.T) {
	agent := NewAgent(nil, config.Config{}, nil)
	_, err := agent.Extract(context.Background(), "house")
	assert.ErrorIs(t, err, llm.ErrProviderNotConfigured)
}

func TestNewAgent_MissingPromptDisablesLLM(t *testing.T) {
	prev := loadSystemPrompt
	loadSystemPrompt = func() (string, error) { return "", errors.New("prompt not found: requirements_extraction") }
	t.Cleanup(func() { loadSystemPrompt = prev })

	p := &mockProvider{generateFunc: respond(validOutput)}
	agent := NewAgent(p, config.Config{}, nil)

	_, err := agent.Extract(context.Background(), "three bedroom house")
	assert.ErrorIs(t, err, llm.ErrProviderNotConfigured)
	assert.Zero(t, p.calls.Load())
}

func TestExtract_EmptyDescription(t *testing.T) {
	p := &mockProvider{generateFunc: respond(validOutput)}
	agent := NewAgent(p, config.Config{}, nil)

	_, err := agent.Extract(context.Background(), "   ")
	assert.ErrorIs(t, err, floorplan.ErrInvalidRequirements)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestToRequirements_ZeroConstraintsOmitted(t *testing.T) {
	req := extraction{TotalArea: 80}.toRequirements("flat")
	assert.Nil(t, req.Constraints)
	assert.Zero(t, req.Bedrooms)
}

func TestExtractStream_ForwardsDeltas(t *testing.T) {
	p := &mockProvider{generateFunc: respond(validOutput)}
	agent := NewAgent(p, config.Config{CacheTTL: time.Minute}, cache.NewMemory())

	var text strings.Builder
	var deltas int
	cb := func(ev llm.StreamEvent) error {
		deltas++
		text.WriteString(ev.Message)
		return nil
	}

	first, err := agent.ExtractStream(context.Background(), "Three bedroom house", cb)
	require.NoError(t, err)
	assert.Equal(t, 2, deltas)
	assert.Equal(t, validOutput, text.String())
	assert.Equal(t, 3, first.Requirements.Bedrooms)

	second, err := agent.ExtractStream(context.Background(), "three bedroom house", cb)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 2, deltas)
}

func TestExtractStream_CallbackErrorIsNotCached(t *testing.T) {
	p := &mockProvider{generateFunc: respond(validOutput)}
	agent := NewAgent(p, config.Config{CacheTTL: time.Minute}, cache.NewMemory())

	_, err := agent.ExtractStream(context.Background(), "Three bedroom house", func(llm.StreamEvent) error {
		return errors.New("socket closed")
	})
	assert.ErrorIs(t, err, llm.ErrStreamAborted)

	result, err := agent.Extract(context.Background(), "Three bedroom house")
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, int32(2), p.calls.Load())
}
