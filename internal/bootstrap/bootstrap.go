package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	httpadapter "github.com/tradecorpus/rag-orchestrator/internal/adapters/http"
	"github.com/tradecorpus/rag-orchestrator/internal/config"
	"github.com/tradecorpus/rag-orchestrator/internal/core/domain"
	"github.com/tradecorpus/rag-orchestrator/internal/core/ports"
	"github.com/tradecorpus/rag-orchestrator/internal/core/usecase"
	"github.com/tradecorpus/rag-orchestrator/internal/infrastructure/cache"
	"github.com/tradecorpus/rag-orchestrator/internal/infrastructure/index/postgres"
	"github.com/tradecorpus/rag-orchestrator/internal/infrastructure/index/qdrant"
	"github.com/tradecorpus/rag-orchestrator/internal/infrastructure/llm/ollama"
	"github.com/tradecorpus/rag-orchestrator/internal/infrastructure/resilience"
	natstelemetry "github.com/tradecorpus/rag-orchestrator/internal/infrastructure/telemetry/nats"
	"github.com/tradecorpus/rag-orchestrator/internal/observability/metrics"
	"github.com/tradecorpus/rag-orchestrator/internal/observability/monitor"
)

const serviceName = "rag-orchestrator"

type App struct {
	Config config.Config

	Analyzer     *usecase.ComplexityAnalyzer
	Expander     *usecase.UpliftEngine
	Orchestrator *usecase.RetrievalOrchestrator
	AskUC        *usecase.AskUseCase

	Monitor        *monitor.Monitor
	ExpansionCache *cache.Adaptive[domain.ExpansionResult]
	Metrics        *metrics.HTTPServerMetrics
	Router         *httpadapter.Router

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	lexical := postgres.NewLexicalIndex(db)
	if err := lexical.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure lexical schema: %w", err)
	}

	vector := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	executor := resilience.NewExecutor(resilience.DefaultPolicy())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel).WithExecutor(executor)
	generator := ollama.NewGenerator(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	var telemetry ports.TelemetryPublisher
	var telemetryCloser func()
	if cfg.TelemetryEnabled {
		publisher, err := natstelemetry.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natstelemetry.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init telemetry publisher: %w", err)
		}
		telemetry = publisher
		telemetryCloser = publisher.Close
	}

	analyzer := usecase.NewComplexityAnalyzer(usecase.AnalyzerSettings{
		ThresholdSimple:  cfg.ComplexityThresholdSimple,
		ThresholdMedium:  cfg.ComplexityThresholdMedium,
		ThresholdComplex: cfg.ComplexityThresholdComplex,

		WeightWords:      cfg.WeightWordCount,
		WeightTerms:      cfg.WeightTechTerms,
		WeightQuestions:  cfg.WeightQuestions,
		WeightAnalytical: cfg.WeightAnalytical,
		WeightHistory:    cfg.WeightHistory,

		ModelSimple:   cfg.ModelSimple,
		ModelMedium:   cfg.ModelMedium,
		ModelComplex:  cfg.ModelComplex,
		ModelResearch: cfg.ModelResearch,
	})

	expansionCache := cache.New[domain.ExpansionResult]()
	if cfg.CacheEnabled && cfg.CacheSweepSeconds > 0 {
		expansionCache.StartSweep(ctx, time.Duration(cfg.CacheSweepSeconds)*time.Second)
	}

	baseUplift := usecase.UpliftSettings{
		Enabled:           cfg.ExpansionEnabled,
		ExpansionCount:    cfg.ExpansionCount,
		HyDEEnabled:       cfg.HyDEEnabled,
		SkipWordThreshold: cfg.SkipExpansionWordThreshold,
		Parallel:          cfg.ParallelExpansion,
		LatencyBudget:     time.Duration(cfg.LatencyBudgetMS) * time.Millisecond,
		CacheEnabled:      cfg.CacheEnabled,
		CacheTTL:          time.Duration(cfg.CacheTTLSeconds) * time.Second,
		Model:             cfg.ModelSimple,
		Temperature:       cfg.TemperatureSimple,
		MaxTokens:         256,
	}
	expander := usecase.NewUpliftEngine(generator, expansionCache, baseUplift)

	minimal := baseUplift
	minimal.ExpansionCount = 1
	minimal.HyDEEnabled = false
	aggressive := baseUplift
	aggressive.ExpansionCount = 5
	aggressive.HyDEEnabled = true
	presets := httpadapter.ExpanderPresets{
		Minimal:    expander.WithSettings(minimal),
		Medium:     expander,
		Aggressive: expander.WithSettings(aggressive),
	}

	orchestrator := usecase.NewRetrievalOrchestrator(
		analyzer,
		expander,
		embedder,
		lexical,
		vector,
		usecase.OrchestratorSettings{
			RerankWeightLexical:       cfg.RerankWeightLexical,
			RerankWeightVector:        cfg.RerankWeightVector,
			RerankWeightOverlap:       cfg.RerankWeightOverlap,
			Timeout:                   time.Duration(cfg.RetrievalTimeoutSeconds) * time.Second,
			ExpansionEnabled:          cfg.ExpansionEnabled,
			ExpansionConfidenceMin:    cfg.ExpansionConfidenceMin,
			SkipExpansionSingleSource: true,
		},
	)

	perfMonitor := monitor.New(cfg.MonitorHistorySize)

	askUC := usecase.NewAskUseCase(
		analyzer,
		orchestrator,
		generator,
		perfMonitor,
		telemetry,
		usecase.GenerationDefaults{
			Temperature: map[domain.ComplexityLevel]float64{
				domain.LevelSimple:   cfg.TemperatureSimple,
				domain.LevelMedium:   cfg.TemperatureMedium,
				domain.LevelComplex:  cfg.TemperatureComplex,
				domain.LevelResearch: cfg.TemperatureResearch,
			},
			MaxTokens: map[domain.ComplexityLevel]int{
				domain.LevelSimple:   cfg.MaxTokensSimple,
				domain.LevelMedium:   cfg.MaxTokensMedium,
				domain.LevelComplex:  cfg.MaxTokensComplex,
				domain.LevelResearch: cfg.MaxTokensResearch,
			},
		},
	)

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(
		askUC,
		analyzer,
		presets,
		orchestrator,
		perfMonitor,
		expansionCache,
		serverMetrics,
		httpadapter.Options{
			Service:        serviceName,
			RateLimitRPS:   float64(cfg.APIRateLimitRPS),
			RateLimitBurst: cfg.APIRateLimitBurst,
			MaxInFlight:    cfg.APIMaxInFlight,
			QueueWait:      time.Duration(cfg.APIQueueWaitMS) * time.Millisecond,
		},
	)

	slog.Info("bootstrap_complete",
		"qdrant_collection", cfg.QdrantCollection,
		"expansion_enabled", cfg.ExpansionEnabled,
		"telemetry_enabled", cfg.TelemetryEnabled,
	)

	return &App{
		Config: cfg,

		Analyzer:     analyzer,
		Expander:     expander,
		Orchestrator: orchestrator,
		AskUC:        askUC,

		Monitor:        perfMonitor,
		ExpansionCache: expansionCache,
		Metrics:        serverMetrics,
		Router:         router,

		closeFn: func() {
			if telemetryCloser != nil {
				telemetryCloser()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
