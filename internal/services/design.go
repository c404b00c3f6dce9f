package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/requirements"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/logger"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/metrics"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
	"github.com/getsentry/sentry-go"
)

// Where the requirements behind a generated model came from
const (
	SourceExplicit  = "explicit"
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"
)

// ActionGenerateDesign is the only action accepted by GenerateDesign
const ActionGenerateDesign = "generate_design"

// MaxRoomsPerType caps bedroom and bathroom counts accepted by the service.
// The generator itself takes any count; this bounds request size.
const MaxRoomsPerType = 50

// ErrUnsupportedAction is returned for a design request with another action
var ErrUnsupportedAction = errors.New("unsupported action")

// RequirementsExtractor turns a description into requirements
type RequirementsExtractor interface {
	Extract(ctx context.Context, description string) (*requirements.Result, error)
}

// StreamingExtractor is a RequirementsExtractor that can forward LLM text
// deltas while it works
type StreamingExtractor interface {
	RequirementsExtractor
	ExtractStream(ctx context.Context, description string, cb llm.StreamCallback) (*requirements.Result, error)
}

// DesignService runs the requirements pipeline and the layout generator
type DesignService struct {
	extractor     RequirementsExtractor
	sentryMetrics *metrics.SentryMetrics
	cloudwatch    *metrics.Client
}

// NewDesignService creates a design service. extractor and cw may be nil.
func NewDesignService(extractor RequirementsExtractor, cw *metrics.Client) *DesignService {
	return &DesignService{
		extractor:     extractor,
		sentryMetrics: metrics.NewSentryMetrics(),
		cloudwatch:    cw,
	}
}

// DesignRequest is the body of POST /generate
type DesignRequest struct {
	Action       string                 `json:"action"`
	Requirements floorplan.Requirements `json:"requirements"`
}

// DesignResult is a generated layout for explicit requirements
type DesignResult struct {
	Design   *floorplan.GeneratedModel `json:"design"`
	Message  string                    `json:"message"`
	Warnings []floorplan.Warning       `json:"warnings"`
}

// ModelRequest is the body of POST /generate_revit_model
type ModelRequest struct {
	Description  string                 `json:"description"`
	Requirements *floorplan.Overlay     `json:"requirements,omitempty"`
	Constraints  *floorplan.Constraints `json:"constraints,omitempty"`
}

// ModelResult is a generated layout together with the requirements used
type ModelResult struct {
	Model        *floorplan.GeneratedModel `json:"model_data"`
	Requirements floorplan.Requirements    `json:"requirements"`
	Source       string                    `json:"source"`
	Warnings     []floorplan.Warning       `json:"warnings"`
	Usage        *llm.Usage                `json:"usage,omitempty"`
}

// ExtractionResult is the outcome of the requirements pipeline alone
type ExtractionResult struct {
	Requirements floorplan.Requirements `json:"requirements"`
	Source       string                 `json:"source"`
	Cached       bool                   `json:"cached"`
	Usage        *llm.Usage             `json:"usage,omitempty"`
}

// GenerateDesign builds the layout for explicit requirements
func (s *DesignService) GenerateDesign(ctx context.Context, req *DesignRequest) (*DesignResult, error) {
	if req.Action != ActionGenerateDesign {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, req.Action)
	}

	model, warnings, err := s.generate(ctx, req.Requirements, SourceExplicit)
	if err != nil {
		return nil, err
	}

	r := req.Requirements
	return &DesignResult{
		Design:   model,
		Message:  fmt.Sprintf("Generated %s style design with %d bedrooms and %d bathrooms", r.Style, r.Bedrooms, r.Bathrooms),
		Warnings: warnings,
	}, nil
}

// ExtractRequirements resolves a description to requirements. The LLM is
// tried first; if it is unavailable or its output is rejected the text is
// scanned directly, and anything still missing takes DefaultRequirements.
func (s *DesignService) ExtractRequirements(ctx context.Context, description string) (*ExtractionResult, error) {
	return s.extractRequirements(ctx, description, nil)
}

func (s *DesignService) extractRequirements(ctx context.Context, description string, cb llm.StreamCallback) (*ExtractionResult, error) {
	description = strings.TrimSpace(description)

	if s.extractor != nil && description != "" {
		var result *requirements.Result
		var err error
		if se, ok := s.extractor.(StreamingExtractor); ok && cb != nil {
			result, err = se.ExtractStream(ctx, description, cb)
		} else {
			result, err = s.extractor.Extract(ctx, description)
		}
		if err == nil {
			usage := result.Usage
			return &ExtractionResult{
				Requirements: result.Requirements,
				Source:       SourceLLM,
				Cached:       result.Cached,
				Usage:        &usage,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, llm.ErrStreamAborted) {
			return nil, err
		}
		s.recordFallback(err)
	}

	req := ExtractHeuristic(description).Apply(DefaultRequirements)
	req.AdditionalRequirements = description
	return &ExtractionResult{Requirements: req, Source: SourceHeuristic}, nil
}

// GenerateModel resolves requirements for req and generates the layout.
// Explicit requirement fields and constraints override extracted values; when
// the explicit fields are complete on their own no extraction runs.
func (s *DesignService) GenerateModel(ctx context.Context, req *ModelRequest) (*ModelResult, error) {
	return s.GenerateModelStream(ctx, req, nil)
}

// GenerateModelStream is GenerateModel with the extraction's LLM text deltas
// forwarded to cb. An error from cb aborts the request with
// llm.ErrStreamAborted; the heuristic fallback does not run.
func (s *DesignService) GenerateModelStream(ctx context.Context, req *ModelRequest, cb llm.StreamCallback) (*ModelResult, error) {
	if strings.TrimSpace(req.Description) == "" && req.Requirements.IsEmpty() {
		return nil, fmt.Errorf("%w: description or requirements is required", floorplan.ErrInvalidRequirements)
	}
	log.Printf("🏗️  Generating Revit model for: %s", logger.Truncate(req.Description, 100))

	var (
		base   floorplan.Requirements
		source string
		usage  *llm.Usage
	)
	if req.Requirements.Complete() {
		base = DefaultRequirements
		base.AdditionalRequirements = strings.TrimSpace(req.Description)
		source = SourceExplicit
	} else {
		extracted, err := s.extractRequirements(ctx, req.Description, cb)
		if err != nil {
			return nil, err
		}
		base, source, usage = extracted.Requirements, extracted.Source, extracted.Usage
	}

	resolved := req.Requirements.Apply(base)
	if req.Constraints != nil {
		resolved = (&floorplan.Overlay{Constraints: req.Constraints}).Apply(resolved)
	}

	model, warnings, err := s.generate(ctx, resolved, source)
	if err != nil {
		return nil, err
	}
	return &ModelResult{
		Model:        model,
		Requirements: resolved,
		Source:       source,
		Warnings:     warnings,
		Usage:        usage,
	}, nil
}

func (s *DesignService) generate(ctx context.Context, req floorplan.Requirements, source string) (*floorplan.GeneratedModel, []floorplan.Warning, error) {
	transaction := sentry.StartTransaction(ctx, "floorplan.generate")
	defer transaction.Finish()
	transaction.SetTag("source", source)

	if req.Bedrooms > MaxRoomsPerType || req.Bathrooms > MaxRoomsPerType {
		transaction.SetTag("success", "false")
		return nil, nil, fmt.Errorf("%w: at most %d rooms per type are supported", floorplan.ErrInvalidRequirements, MaxRoomsPerType)
	}

	start := time.Now()
	model, err := floorplan.Generate(req)
	duration := time.Since(start)

	if err != nil {
		transaction.SetTag("success", "false")
		metrics.GenerationTotal.WithLabelValues(source, "error").Inc()
		s.sentryMetrics.RecordGeneration(transaction.Context(), source, 0, 0, 0, duration, false)
		s.cloudwatch.RecordGeneration(source, duration, false)
		return nil, nil, err
	}

	warnings := floorplan.Diagnose(model, req)
	if warnings == nil {
		warnings = []floorplan.Warning{}
	}
	for _, w := range warnings {
		metrics.GenerationWarnings.WithLabelValues(w.Code).Inc()
		log.Printf("⚠️  Layout warning [%s]: %s", w.Code, w.Message)
	}

	transaction.SetTag("success", "true")
	metrics.GenerationTotal.WithLabelValues(source, "success").Inc()
	s.sentryMetrics.RecordGeneration(transaction.Context(), source, len(model.Walls), len(model.Rooms), len(warnings), duration, true)
	s.cloudwatch.RecordGeneration(source, duration, true)

	log.Printf("✅ Floor plan generated (%s): %d walls, %d rooms, %d openings, %d warnings",
		source, len(model.Walls), len(model.Rooms), len(model.Openings), len(warnings))
	return model, warnings, nil
}

func (s *DesignService) recordFallback(err error) {
	switch {
	case errors.Is(err, llm.ErrProviderNotConfigured):
		log.Printf("ℹ️  No LLM provider configured, extracting requirements heuristically")
	case errors.Is(err, llm.ErrSchemaValidation):
		log.Printf("⚠️  LLM requirements rejected, extracting heuristically: %v", err)
	default:
		log.Printf("⚠️  LLM requirements extraction failed, extracting heuristically: %v", err)
	}
	s.sentryMetrics.RecordFallback("requirements", err)
	metrics.FallbackTotal.WithLabelValues("requirements").Inc()
}
