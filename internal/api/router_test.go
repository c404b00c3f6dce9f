package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/query"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/cache"
	appconfig "github.com/Conceptual-Machines/revit-mcp-api/internal/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupTestRouter(t *testing.T, cfg *appconfig.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg == nil {
		cfg = &appconfig.Config{AuthMode: "none"}
	}
	cfg.Environment = "test"

	return SetupRouter(Dependencies{
		Config:  cfg,
		Cache:   cache.NewMemory(),
		Design:  services.NewDesignService(nil, nil),
		Query:   query.NewAgent(nil, config.Config{}),
		History: services.NewHistoryService(nil),
		Version: "test",
	})
}

func do(router *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["message"])

	w = do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, "disabled", body["database"])
	assert.Equal(t, "memory", body["cache"])
	assert.Equal(t, "heuristic", body["llm"])
}

func TestGenerate(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodPost, "/generate", `{
		"action": "generate_design",
		"requirements": {"area": 120, "bedrooms": 2, "bathrooms": 1, "style": "Modern",
			"additional_requirements": "Open plan living area with large windows"}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Generated Modern style design with 2 bedrooms and 1 bathrooms", body["message"])
	design := body["design"].(map[string]any)
	assert.Len(t, design["levels"], 1)
	assert.Len(t, design["walls"], 10)
	assert.Len(t, design["rooms"], 3)
	assert.Len(t, design["openings"], 5)
}

func TestGenerate_ErrorStatuses(t *testing.T) {
	router := setupTestRouter(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"action":`, http.StatusBadRequest},
		{"wrong action", `{"action": "delete", "requirements": {"area": 100, "bedrooms": 1, "bathrooms": 1}}`, http.StatusBadRequest},
		{"zero area", `{"action": "generate_design", "requirements": {"area": 0, "bedrooms": 1, "bathrooms": 1}}`, http.StatusBadRequest},
		{"negative bedrooms", `{"action": "generate_design", "requirements": {"area": 100, "bedrooms": -1, "bathrooms": 1}}`, http.StatusBadRequest},
		{"degenerate", `{"action": "generate_design", "requirements": {"area": 5e-324, "bedrooms": 1, "bathrooms": 0}}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/generate", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestGenerateRevitModel(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodPost, "/generate_revit_model", `{
		"description": "Modern 3 bedroom house, 2 bathrooms, 150 m2",
		"requirements": {"style": "minimalist"},
		"constraints": {"ceiling_height": 3.0}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Model generated successfully", body["message"])
	assert.Equal(t, services.SourceHeuristic, body["source"])
	assert.Nil(t, body["error"])

	reqs := body["requirements"].(map[string]any)
	assert.Equal(t, 150.0, reqs["total_area"])
	assert.Equal(t, 3.0, reqs["bedrooms"])
	assert.Equal(t, "minimalist", reqs["style"])

	walls := body["model_data"].(map[string]any)["walls"].([]any)
	assert.Len(t, walls, 4+3*3)
	assert.Equal(t, 3.0, walls[0].(map[string]any)["height"])
}

func TestGenerateRevitModel_Failure(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodPost, "/generate_revit_model", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to generate model", body["message"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, map[string]any{"levels": nil, "walls": nil, "rooms": nil, "openings": nil}, body["model_data"])
}

func TestExtractRequirements(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodPost, "/api/v1/requirements/extract", `{"description": "two bedroom colonial, 95 sqm"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, services.SourceHeuristic, body["source"])
	reqs := body["requirements"].(map[string]any)
	assert.Equal(t, 95.0, reqs["total_area"])
	assert.Equal(t, 2.0, reqs["bedrooms"])
	assert.Equal(t, "colonial", reqs["style"])

	w = do(router, http.MethodPost, "/api/v1/requirements/extract", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessRevitQuery(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodPost, "/process_revit_query", `{
		"prompt": "Analyze these elements",
		"revit_elements": [
			{"id": 1, "type": "Wall", "parameters": {"Material": "Concrete"}},
			{"id": 2, "type": "Door", "parameters": {}}
		],
		"project_info": {"name": "Test Project", "number": "TP-001"}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Analysis of 2 Revit elements", body["response"])
	assert.Equal(t, []any{
		"Consider optimizing wall thickness for Concrete",
		"Check if door dimensions meet accessibility standards",
	}, body["suggested_actions"])
	assert.Equal(t, query.SourceFallback, body["source"])
}

func TestProcessRevitQuery_CategoryElements(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodPost, "/process_revit_query", `{
		"prompt": "What is the total wall length?",
		"revit_elements": {"walls": [{"id": 1, "type": "Wall", "length": 10, "height": 3}]},
		"project_info": {"name": "Test Project"}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Analysis of 1 Revit elements", decode(t, w)["response"])
}

func TestProcessRevitQuery_Invalid(t *testing.T) {
	router := setupTestRouter(t, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, do(router, http.MethodPost, "/process_revit_query", `{"prompt": ""}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(router, http.MethodPost, "/process_revit_query", `{"prompt": 5}`).Code)
}

func TestCatalogs(t *testing.T) {
	router := setupTestRouter(t, nil)

	w := do(router, http.MethodGet, "/api/revit/elements", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Basic Wall", "Curtain Wall", "Stacked Wall"}, decode(t, w)["walls"])

	w = do(router, http.MethodGet, "/api/revit/properties", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Concrete", "Steel", "Wood", "Glass"}, decode(t, w)["materials"])
}

func TestHistory_NoDatabase(t *testing.T) {
	router := setupTestRouter(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/api/v1/history", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/v1/history?limit=abc", "").Code)
}

func TestMetricsEndpoints(t *testing.T) {
	router := setupTestRouter(t, nil)
	do(router, http.MethodGet, "/health", "")

	w := do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "revit_mcp_http_requests_total")

	w = do(router, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "none", body["api"].(map[string]any)["auth_mode"])
}

func TestAPIKeyProtection(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("revit-key"), bcrypt.MinCost)
	require.NoError(t, err)
	router := setupTestRouter(t, &appconfig.Config{AuthMode: "api_key", APIKeyHash: string(hash)})

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/revit/elements", "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/revit/elements", "", "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/revit/elements", "", "X-API-Key", "revit-key").Code)

	// public routes stay open
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
}

func TestWebSocket(t *testing.T) {
	server := httptest.NewServer(setupTestRouter(t, nil))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	roundTrip := func(msg string) map[string]any {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		var event map[string]any
		require.NoError(t, conn.ReadJSON(&event))
		return event
	}

	assert.Equal(t, "pong", roundTrip(`{"type": "ping"}`)["type"])

	event := roundTrip(`{"type": "generate_design", "requirements": {"area": 100, "bedrooms": 1, "bathrooms": 1, "style": "modern"}}`)
	assert.Equal(t, "design", event["type"])
	assert.Equal(t, "Generated modern style design with 1 bedrooms and 1 bathrooms", event["message"])

	event = roundTrip(`{"type": "generate_model", "description": "2 bedroom flat of 70 m2"}`)
	assert.Equal(t, "model", event["type"])

	event = roundTrip(`{"type": "query", "prompt": "check", "revit_elements": [{"id": 1, "type": "Door"}]}`)
	assert.Equal(t, "query_result", event["type"])
	assert.Equal(t, "Analysis of 1 Revit elements", event["message"])

	event = roundTrip(`{"type": "generate_design", "requirements": {"area": -1}}`)
	assert.Equal(t, "error", event["type"])
	assert.Equal(t, 400.0, event["data"].(map[string]any)["status"])

	assert.Equal(t, "error", roundTrip(`{"type": "teleport"}`)["type"])
	assert.Equal(t, "error", roundTrip(`not json`)["type"])
}
