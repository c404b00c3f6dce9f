// Package client is a Go client for the Revit MCP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout    = 90 * time.Second // generate_revit_model may wait on an LLM
	defaultRetryCount = 2
	apiKeyHeader      = "X-API-Key"
)

// Client talks to one API instance
type Client struct {
	http *resty.Client
}

// Option configures a Client
type Option func(*resty.Client)

// WithAPIKey sends key in the X-API-Key header
func WithAPIKey(key string) Option {
	return func(c *resty.Client) {
		if key != "" {
			c.SetHeader(apiKeyHeader, key)
		}
	}
}

// WithBearerToken sends a JWT in the Authorization header
func WithBearerToken(token string) Option {
	return func(c *resty.Client) {
		if token != "" {
			c.SetAuthToken(token)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries sets how often idempotent failures are retried
func WithRetries(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// New creates a client for baseURL, e.g. "http://localhost:8080"
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only transport errors and gateway failures; 4xx and 500 are final
			if err != nil {
				return true
			}
			switch r.StatusCode() {
			case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return true
			}
			return false
		})

	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	LLM         string `json:"llm"`
}

type DesignResponse struct {
	Status   string                    `json:"status"`
	Design   *floorplan.GeneratedModel `json:"design"`
	Message  string                    `json:"message"`
	Warnings []floorplan.Warning       `json:"warnings"`
}

type ModelRequest struct {
	Description  string                 `json:"description"`
	Requirements *floorplan.Overlay     `json:"requirements,omitempty"`
	Constraints  *floorplan.Constraints `json:"constraints,omitempty"`
}

type ModelResponse struct {
	Success      bool                      `json:"success"`
	ModelData    *floorplan.GeneratedModel `json:"model_data"`
	Requirements *floorplan.Requirements   `json:"requirements,omitempty"`
	Source       string                    `json:"source"`
	Message      string                    `json:"message"`
	Error        *string                   `json:"error"`
	Warnings     []floorplan.Warning       `json:"warnings"`
}

type ExtractionResponse struct {
	Requirements floorplan.Requirements `json:"requirements"`
	Source       string                 `json:"source"`
	Cached       bool                   `json:"cached"`
}

// Element is a Revit element sent with a query
type Element struct {
	ID         interface{}            `json:"id"`
	Type       string                 `json:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type QueryRequest struct {
	Prompt        string                 `json:"prompt"`
	Model         string                 `json:"model,omitempty"`
	RevitElements []Element              `json:"revit_elements,omitempty"`
	ProjectInfo   map[string]interface{} `json:"project_info,omitempty"`
}

type QueryResponse struct {
	Response         string   `json:"response"`
	SuggestedActions []string `json:"suggested_actions"`
	Error            string   `json:"error,omitempty"`
	Source           string   `json:"source"`
}

type HistoryEntry struct {
	ID        uint      `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
	Count   int            `json:"count"`
}

// Catalog maps a category to its names, e.g. "walls" -> ["Basic Wall", ...]
type Catalog map[string][]string

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	return &out, c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// GenerateDesign lays out explicit requirements
func (c *Client) GenerateDesign(ctx context.Context, req floorplan.Requirements) (*DesignResponse, error) {
	body := map[string]interface{}{
		"action":       "generate_design",
		"requirements": req,
	}
	var out DesignResponse
	return &out, c.do(ctx, http.MethodPost, "/generate", body, &out)
}

// GenerateModel resolves a description to requirements and lays it out.
// A failed generation is returned as an *APIError.
func (c *Client) GenerateModel(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	var out ModelResponse
	return &out, c.do(ctx, http.MethodPost, "/generate_revit_model", req, &out)
}

func (c *Client) ExtractRequirements(ctx context.Context, description string) (*ExtractionResponse, error) {
	var out ExtractionResponse
	body := map[string]string{"description": description}
	return &out, c.do(ctx, http.MethodPost, "/api/v1/requirements/extract", body, &out)
}

func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	var out QueryResponse
	return &out, c.do(ctx, http.MethodPost, "/process_revit_query", req, &out)
}

func (c *Client) Elements(ctx context.Context) (Catalog, error) {
	var out Catalog
	if err := c.do(ctx, http.MethodGet, "/api/revit/elements", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Properties(ctx context.Context) (Catalog, error) {
	var out Catalog
	if err := c.do(ctx, http.MethodGet, "/api/revit/properties", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History lists recent queries, newest first. limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	path := "/api/v1/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out HistoryResponse
	return &out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	apiErr := &APIError{}
	req := c.http.R().
		SetContext(ctx).
		SetResult(out).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}
	return nil
}
