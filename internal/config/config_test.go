package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "AUTH_MODE", "LLM_TIMEOUT_SECONDS", "CACHE_TTL_SECONDS", "CORS_ORIGINS", "NVIDIA_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "none", cfg.AuthMode)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "https://integrate.api.nvidia.com/v1", cfg.NvidiaBaseURL)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.IsGatewayMode())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_MODE", "gateway")
	t.Setenv("LLM_TIMEOUT_SECONDS", "15")
	t.Setenv("CACHE_TTL_SECONDS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LANGFUSE_ENABLED", "true")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.IsGatewayMode())
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.LangfuseEnabled)
}
