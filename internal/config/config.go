package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
// All values come from the environment (optionally via a .env file loaded in main)
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM API Keys
	AnthropicAPIKey string // Claude (requirements extraction, Revit queries)
	OpenAIAPIKey    string // OpenAI GPT models
	NvidiaAPIKey    string // NVIDIA NIM (Nemotron) via OpenAI-compatible API
	NvidiaBaseURL   string
	GeminiAPIKey    string // Google Gemini API key

	// LLM selection
	LLMProvider string // explicit provider; empty = infer from model
	LLMModel    string
	LLMTimeout  time.Duration

	// Storage
	DatabaseURL string // Postgres DSN; empty disables query history
	RedisURL    string // redis://...; empty uses the in-process cache
	CacheTTL    time.Duration

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
	CloudWatchEnabled bool

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from an upstream gateway
	// - "api_key": Require X-API-Key matching APIKeyHash (bcrypt)
	// - "jwt": Require a Bearer token signed with JWTSecret (HS256)
	AuthMode   string
	APIKeyHash string
	JWTSecret  string

	CORSOrigins []string
}

const (
	defaultLLMTimeoutSeconds = 60
	defaultCacheTTLSeconds   = 3600
)

func Load() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		NvidiaAPIKey:      getEnv("NVIDIA_API_KEY", ""),
		NvidiaBaseURL:     getEnv("NVIDIA_BASE_URL", "https://integrate.api.nvidia.com/v1"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		LLMProvider:       getEnv("LLM_PROVIDER", ""),
		LLMModel:          getEnv("LLM_MODEL", ""), // empty = provider default
		LLMTimeout:        getSeconds("LLM_TIMEOUT_SECONDS", defaultLLMTimeoutSeconds),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		CacheTTL:          getSeconds("CACHE_TTL_SECONDS", defaultCacheTTLSeconds),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		CloudWatchEnabled: getEnv("CLOUDWATCH_ENABLED", "false") == "true",
		AuthMode:          getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
		APIKeyHash:        getEnv("API_KEY_HASH", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getSeconds(key string, defaultSeconds int) time.Duration {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		n = defaultSeconds
	}
	return time.Duration(n) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsGatewayMode returns true if running behind an authenticating gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsProduction reports whether ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
