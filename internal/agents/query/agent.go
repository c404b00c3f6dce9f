// Package query answers free-form questions about Revit elements.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/logger"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/metrics"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/observability"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/prompt"
	"github.com/getsentry/sentry-go"
)

// Answer sources
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// ErrEmptyPrompt is returned for a blank query
var ErrEmptyPrompt = errors.New("prompt must not be empty")

var loadSystemPrompt = prompt.NewPromptLoader().GetRevitQueryPrompt

// Request is a question about the current Revit model
type Request struct {
	Prompt        string         `json:"prompt"`
	Model         string         `json:"model,omitempty"`
	RevitElements Elements       `json:"revit_elements,omitempty"`
	ProjectInfo   map[string]any `json:"project_info,omitempty"`
}

// Result is the answer returned to the plugin
type Result struct {
	Response         string    `json:"response"`
	SuggestedActions []string  `json:"suggested_actions"`
	Error            string    `json:"error,omitempty"`
	Source           string    `json:"source"`
	Usage            llm.Usage `json:"-"`
}

// Agent answers queries with an LLM and falls back to rule-based analysis
type Agent struct {
	provider     llm.Provider
	cfg          config.Config
	systemPrompt string
	schema       *llm.OutputSchema
	metrics      *metrics.SentryMetrics
}

// NewAgent creates a query agent; a nil provider or a missing system prompt
// always uses the fallback
func NewAgent(provider llm.Provider, cfg config.Config) *Agent {
	systemPrompt, err := loadSystemPrompt()
	if err != nil {
		logger.Error("Revit query prompt unavailable, using element analysis only", err, nil)
		provider = nil
	}
	return &Agent{
		provider:     provider,
		cfg:          cfg,
		systemPrompt: systemPrompt,
		schema:       llm.QueryOutputSchema(),
		metrics:      metrics.NewSentryMetrics(),
	}
}

// Process answers req. Provider failures are not errors: the rule-based
// analysis answers instead and Source reports which path ran.
func (a *Agent) Process(ctx context.Context, req *Request) (*Result, error) {
	return a.ProcessStream(ctx, req, nil)
}

// ProcessStream is Process with the provider's text deltas forwarded to cb.
// An error from cb aborts the query with llm.ErrStreamAborted instead of
// falling back, since nobody is left to read the answer.
func (a *Agent) ProcessStream(ctx context.Context, req *Request, cb llm.StreamCallback) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	log.Printf("🔎 Processing Revit query: %s (%d elements)", logger.Truncate(req.Prompt, 80), len(req.RevitElements))

	if a.provider == nil {
		return Analyze(req), nil
	}

	result, err := a.ask(ctx, req, cb)
	if errors.Is(err, llm.ErrStreamAborted) {
		return nil, err
	}
	if err != nil {
		log.Printf("⚠️  Query LLM failed, using element analysis: %v", err)
		a.metrics.RecordFallback("query", err)
		metrics.FallbackTotal.WithLabelValues("query").Inc()
		return Analyze(req), nil
	}
	return result, nil
}

func (a *Agent) ask(ctx context.Context, req *Request, cb llm.StreamCallback) (*Result, error) {
	transaction := sentry.StartTransaction(ctx, "query.process")
	defer transaction.Finish()
	transaction.SetTag("provider", a.provider.Name())
	ctx = transaction.Context()

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = a.cfg.Model
	}
	params := config.GetLLMParameters(config.LLMStageQuery)
	input := []map[string]any{
		{"role": "user", "content": prompt.BuildQueryContext(req.ProjectInfo, req.RevitElements, req.Prompt)},
	}

	trace := observability.GetClient().StartTrace(ctx, "revit.query", map[string]interface{}{
		"provider": a.provider.Name(),
		"elements": len(req.RevitElements),
	})
	defer trace.Finish()
	gen := trace.Generation("process_revit_query", nil)
	defer gen.Finish()

	genReq := &llm.GenerationRequest{
		Model:         model,
		InputArray:    input,
		SystemPrompt:  a.systemPrompt,
		Temperature:   params.Temperature,
		MaxTokens:     params.MaxTokens,
		ReasoningMode: params.ReasoningMode,
		OutputSchema:  a.schema,
	}
	start := time.Now()
	var resp *llm.GenerationResponse
	var err error
	if cb != nil {
		transaction.SetTag("streaming", "true")
		resp, err = a.provider.GenerateStream(ctx, genReq, cb)
	} else {
		resp, err = a.provider.Generate(ctx, genReq)
	}
	if err != nil {
		metrics.ObserveLLMCall(a.provider.Name(), model, time.Since(start), 0, 0, err)
		transaction.SetTag("success", "false")
		gen.SetLevel("ERROR")
		return nil, err
	}
	metrics.ObserveLLMCall(resp.Provider, resp.Model, time.Since(start), resp.Usage.InputTokens, resp.Usage.OutputTokens, nil)
	a.metrics.RecordTokenUsage(ctx, resp.Provider, resp.Model, resp.Usage)
	gen.LogGeneration(resp.Model, input, resp.RawOutput, resp.Usage)

	if err := llm.ValidateOutput(a.schema, resp.RawOutput); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	var out struct {
		Response         string   `json:"response"`
		SuggestedActions []string `json:"suggested_actions"`
	}
	if err := json.Unmarshal([]byte(resp.RawOutput), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrSchemaValidation, err)
	}

	transaction.SetTag("success", "true")
	return &Result{
		Response:         out.Response,
		SuggestedActions: nonNil(out.SuggestedActions),
		Source:           SourceLLM,
		Usage:            resp.Usage,
	}, nil
}

// Analyze is the rule-based answer: a summary line plus one recommendation
// per wall and door.
func Analyze(req *Request) *Result {
	actions := []string{}
	for _, el := range req.RevitElements {
		switch el.Kind() {
		case "wall":
			material, ok := el.Param("Material")
			if !ok {
				material = "unknown material"
			}
			actions = append(actions, fmt.Sprintf("Consider optimizing wall thickness for %s", material))
		case "door":
			actions = append(actions, "Check if door dimensions meet accessibility standards")
		}
	}

	return &Result{
		Response:         fmt.Sprintf("Analysis of %d Revit elements", len(req.RevitElements)),
		SuggestedActions: actions,
		Source:           SourceFallback,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
