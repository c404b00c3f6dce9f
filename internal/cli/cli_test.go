package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/query"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/api"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/cache"
	appconfig "github.com/Conceptual-Machines/revit-mcp-api/internal/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("REVIT_MCP_SERVER", "")
	t.Setenv("REVIT_MCP_API_KEY", "")

	var stdout, stderr bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeOutput(t *testing.T, data string) generateOutput {
	t.Helper()
	var out generateOutput
	require.NoError(t, json.Unmarshal([]byte(data), &out), data)
	return out
}

func testServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := api.SetupRouter(api.Dependencies{
		Config:  &appconfig.Config{AuthMode: "none", Environment: "test"},
		Cache:   cache.NewMemory(),
		Design:  services.NewDesignService(nil, nil),
		Query:   query.NewAgent(nil, config.Config{}),
		History: services.NewHistoryService(nil),
		Version: "test",
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server.URL
}

func TestGenerate_Defaults(t *testing.T) {
	stdout, _, err := execute(t, "generate")
	require.NoError(t, err)

	out := decodeOutput(t, stdout)
	assert.Equal(t, services.SourceExplicit, out.Source)
	assert.Equal(t, 100.0, out.Requirements.TotalArea)
	assert.Equal(t, 2, out.Requirements.Bedrooms)
	require.NotNil(t, out.Model)
	assert.Len(t, out.Model.Walls, 4+3*2)
}

func TestGenerate_FlagsOverrideDescription(t *testing.T) {
	stdout, _, err := execute(t, "generate", "modern 3 bedroom house, 2 bathrooms, 150 m2",
		"--bedrooms", "1", "--ceiling-height", "3.2")
	require.NoError(t, err)

	out := decodeOutput(t, stdout)
	assert.Equal(t, services.SourceHeuristic, out.Source)
	assert.Equal(t, 150.0, out.Requirements.TotalArea)
	assert.Equal(t, 1, out.Requirements.Bedrooms)
	assert.Equal(t, 2, out.Requirements.Bathrooms)
	assert.Equal(t, 3.2, out.Model.Walls[0].Height)
}

func TestGenerate_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")

	stdout, _, err := execute(t, "generate", "--area", "80", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, decodeOutput(t, string(data)).Requirements.TotalArea)
}

func TestGenerate_InvalidArea(t *testing.T) {
	_, _, err := execute(t, "generate", "--area=-5", "--bedrooms", "1", "--bathrooms", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_area")
}

func TestGenerate_Remote(t *testing.T) {
	url := testServer(t)

	stdout, _, err := execute(t, "--server", url, "generate", "two bedroom colonial, 95 sqm")
	require.NoError(t, err)

	out := decodeOutput(t, stdout)
	assert.Equal(t, services.SourceHeuristic, out.Source)
	assert.Equal(t, 95.0, out.Requirements.TotalArea)
	assert.Equal(t, "colonial", out.Requirements.Style)
	require.NotNil(t, out.Model)
	assert.NotEmpty(t, out.Model.Walls)
}

func TestDescribe(t *testing.T) {
	stdout, _, err := execute(t, "describe", "studio apartment, 1 bath, 40 sqm")
	require.NoError(t, err)

	var out struct {
		Source       string `json:"source"`
		Requirements struct {
			TotalArea float64 `json:"total_area"`
			Bedrooms  int     `json:"bedrooms"`
		} `json:"requirements"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, services.SourceHeuristic, out.Source)
	assert.Equal(t, 40.0, out.Requirements.TotalArea)
	assert.Equal(t, 0, out.Requirements.Bedrooms)

	_, _, err = execute(t, "describe")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	_, _, err := execute(t, "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--server")

	stdout, _, err := execute(t, "--server", testServer(t), "health")
	require.NoError(t, err)
	assert.Contains(t, stdout, "healthy (version test")
}
