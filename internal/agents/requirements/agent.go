// Package requirements turns a natural-language building description into
// floorplan.Requirements with an LLM.
package requirements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/cache"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/logger"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/metrics"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/observability"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/prompt"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
	"github.com/getsentry/sentry-go"
)

const cacheNamespace = "requirements"

var loadSystemPrompt = prompt.NewPromptLoader().GetRequirementsPrompt

// Agent extracts requirements through an LLM provider
type Agent struct {
	provider     llm.Provider
	cfg          config.Config
	systemPrompt string
	schema       *llm.OutputSchema
	loader       *cache.Loader
	metrics      *metrics.SentryMetrics
}

// Result is one extraction
type Result struct {
	Requirements floorplan.Requirements `json:"requirements"`
	Usage        llm.Usage              `json:"usage"`
	Cached       bool                   `json:"cached"`
	Provider     string                 `json:"provider"`
	Model        string                 `json:"model"`
}

// extraction mirrors llm.GetRequirementsSchema
type extraction struct {
	TotalArea   float64               `json:"total_area"`
	Rooms       []floorplan.RoomRange `json:"rooms"`
	Style       string                `json:"style"`
	Constraints floorplan.Constraints `json:"constraints"`
	Provider    string                `json:"provider"`
	Model       string                `json:"model"`
	Usage       llm.Usage             `json:"usage"`
}

// NewAgent creates a requirements agent. provider may be nil, in which case
// Extract always fails with llm.ErrProviderNotConfigured; the same holds when
// the system prompt cannot be loaded. c may be nil.
func NewAgent(provider llm.Provider, cfg config.Config, c cache.Cache) *Agent {
	systemPrompt, err := loadSystemPrompt()
	if err != nil {
		logger.Error("Requirements prompt unavailable, LLM extraction disabled", err, nil)
		provider = nil
	}

	agent := &Agent{
		provider:     provider,
		cfg:          cfg,
		systemPrompt: systemPrompt,
		schema:       llm.RequirementsOutputSchema(),
		loader:       cache.NewLoader(c, cfg.CacheTTL),
		metrics:      metrics.NewSentryMetrics(),
	}

	if provider != nil {
		log.Printf("🏠 REQUIREMENTS AGENT INITIALIZED (provider: %s, model: %s)", provider.Name(), cfg.Model)
	}
	return agent
}

// Extract returns requirements for description. Results are cached by the
// normalised description, provider and model.
func (a *Agent) Extract(ctx context.Context, description string) (*Result, error) {
	return a.ExtractStream(ctx, description, nil)
}

// ExtractStream is Extract with the provider's text deltas forwarded to cb.
// Cache hits and callers joining another caller's in-flight load receive no
// deltas. An error from cb stops the stream with llm.ErrStreamAborted.
func (a *Agent) ExtractStream(ctx context.Context, description string, cb llm.StreamCallback) (*Result, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("requirements agent: %w", llm.ErrProviderNotConfigured)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: empty description", floorplan.ErrInvalidRequirements)
	}

	transaction := sentry.StartTransaction(ctx, "requirements.extract")
	defer transaction.Finish()
	transaction.SetTag("provider", a.provider.Name())
	ctx = transaction.Context()

	aborted := false
	if cb != nil {
		forward := cb
		cb = func(ev llm.StreamEvent) error {
			if err := forward(ev); err != nil {
				aborted = true
				return err
			}
			return nil
		}
	}

	var out extraction
	key := cache.Key(cacheNamespace, a.provider.Name(), a.cfg.Model, description)
	load := func() (any, error) { return a.call(ctx, description, cb) }
	hit, err := a.loader.GetOrLoad(ctx, key, &out, load)
	if errors.Is(err, llm.ErrStreamAborted) && !aborted {
		// the shared load belonged to a caller that went away
		hit, err = a.loader.GetOrLoad(ctx, key, &out, load)
	}
	metrics.ObserveCache(cacheNamespace, hit)

	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}
	transaction.SetTag("success", "true")
	transaction.SetTag("cached", fmt.Sprintf("%t", hit))

	// Callers sharing one in-flight load all report its usage; a cache hit spent nothing
	usage := out.Usage
	if hit {
		usage = llm.Usage{}
	}

	return &Result{
		Requirements: out.toRequirements(description),
		Usage:        usage,
		Cached:       hit,
		Provider:     out.Provider,
		Model:        out.Model,
	}, nil
}

func (a *Agent) call(ctx context.Context, description string, cb llm.StreamCallback) (*extraction, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	params := config.GetLLMParameters(config.LLMStageRequirements)
	input := []map[string]any{
		{"role": "user", "content": prompt.BuildRequirementsContext(description)},
	}
	request := &llm.GenerationRequest{
		Model:         a.cfg.Model,
		InputArray:    input,
		SystemPrompt:  a.systemPrompt,
		Temperature:   params.Temperature,
		MaxTokens:     params.MaxTokens,
		ReasoningMode: params.ReasoningMode,
		OutputSchema:  a.schema,
	}

	trace := observability.GetClient().StartTrace(ctx, "requirements.extract", map[string]interface{}{
		"provider": a.provider.Name(),
	})
	defer trace.Finish()
	gen := trace.Generation("extract_requirements", nil)
	defer gen.Finish()

	start := time.Now()
	var resp *llm.GenerationResponse
	var err error
	if cb != nil {
		resp, err = a.provider.GenerateStream(ctx, request, cb)
	} else {
		resp, err = a.provider.Generate(ctx, request)
	}
	if err != nil {
		metrics.ObserveLLMCall(a.provider.Name(), a.cfg.Model, time.Since(start), 0, 0, err)
		gen.SetLevel("ERROR")
		return nil, fmt.Errorf("extract requirements: %w", err)
	}
	metrics.ObserveLLMCall(resp.Provider, resp.Model, time.Since(start), resp.Usage.InputTokens, resp.Usage.OutputTokens, nil)
	a.metrics.RecordTokenUsage(ctx, resp.Provider, resp.Model, resp.Usage)
	gen.LogGeneration(resp.Model, input, resp.RawOutput, resp.Usage)

	if err := llm.ValidateOutput(a.schema, resp.RawOutput); err != nil {
		log.Printf("⚠️  Requirements output rejected: %v (output: %s)", err, logger.Truncate(resp.RawOutput, 200))
		gen.SetLevel("WARNING")
		return nil, err
	}

	var ext extraction
	if err := json.Unmarshal([]byte(resp.RawOutput), &ext); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrSchemaValidation, err)
	}
	ext.Provider = resp.Provider
	ext.Model = resp.Model
	ext.Usage = resp.Usage
	return &ext, nil
}

// toRequirements folds per-type room entries into bedroom and bathroom counts
func (e extraction) toRequirements(description string) floorplan.Requirements {
	req := floorplan.Requirements{
		TotalArea:              e.TotalArea,
		Style:                  e.Style,
		AdditionalRequirements: description,
	}

	for _, room := range e.Rooms {
		room.Type = strings.ToLower(strings.TrimSpace(room.Type))
		switch room.Type {
		case "bedroom":
			req.Bedrooms += room.Count
		case "bathroom":
			req.Bathrooms += room.Count
		}
		req.Rooms = append(req.Rooms, room)
	}

	if e.Constraints != (floorplan.Constraints{}) {
		c := e.Constraints
		req.Constraints = &c
	}
	return req
}
