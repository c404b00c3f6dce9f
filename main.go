package main

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/query"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/requirements"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/api"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/cache"
	appconfig "github.com/Conceptual-Machines/revit-mcp-api/internal/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/database"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/metrics"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/observability"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	ctx := context.Background()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "revit-mcp-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	// Query history is optional; a configured but unreachable database is fatal
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to run migrations:", err)
	}

	observability.InitializeLangfuse(ctx, cfg)
	cw := metrics.NewClient(ctx, cfg.Environment, cfg.CloudWatchEnabled)
	resultCache := cache.New(ctx, cfg.RedisURL)

	provider := selectProvider(ctx, cfg)
	providerName := ""
	if provider != nil {
		providerName = provider.Name()
	}

	agentCfg := config.Config{
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
		CacheTTL: cfg.CacheTTL,
	}
	requirementsAgent := requirements.NewAgent(provider, agentCfg, resultCache)
	queryAgent := query.NewAgent(provider, agentCfg)

	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Dependencies{
		Config:     cfg,
		DB:         db,
		Cache:      resultCache,
		CloudWatch: cw,
		Design:     services.NewDesignService(requirementsAgent, cw),
		Query:      queryAgent,
		History:    services.NewHistoryService(db),
		Provider:   providerName,
		Version:    GetVersion(),
	})

	log.Printf("🚀 Starting server on port %s (auth: %s)", cfg.Port, cfg.AuthMode)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

// selectProvider returns the configured LLM provider, or nil when no key is
// set. Without a provider, extraction and queries use their fallbacks.
func selectProvider(ctx context.Context, cfg *appconfig.Config) llm.Provider {
	factory := llm.NewProviderFactory(llm.FactoryConfig{
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		NvidiaAPIKey:    cfg.NvidiaAPIKey,
		NvidiaBaseURL:   cfg.NvidiaBaseURL,
		GeminiAPIKey:    cfg.GeminiAPIKey,
	})
	if !factory.Configured() {
		log.Println("⚠️  No LLM API key configured; using heuristic extraction and element analysis")
		return nil
	}

	name := cfg.LLMProvider
	if name == "" && cfg.LLMModel == "" {
		name = factory.Preferred()
	}
	provider, err := factory.GetProvider(ctx, cfg.LLMModel, name)
	if err != nil {
		if errors.Is(err, llm.ErrProviderNotConfigured) {
			log.Printf("⚠️  %v; using heuristic extraction and element analysis", err)
		} else {
			sentry.CaptureException(err)
			log.Printf("❌ Failed to create LLM provider: %v", err)
		}
		return nil
	}

	log.Printf("🤖 LLM provider: %s (model: %s)", provider.Name(), modelLabel(cfg.LLMModel))
	return provider
}

func modelLabel(model string) string {
	if strings.TrimSpace(model) == "" {
		return "provider default"
	}
	return model
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
