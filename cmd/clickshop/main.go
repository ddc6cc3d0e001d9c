package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/config"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db/aurora"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db/codec"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db/mcpquery"
	dbRedis "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db/redis"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/request"
	logpkg "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/logger"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/repository/embcache"
	orderrepo "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/repository/order"
	productrepo "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/repository/product"
	bedrockEmb "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/transport/bedrock"
	chiTransport "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/transport/chi"
	openaiEmb "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/transport/openai"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/assistant"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/catalog"
	embeddinguc "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/embedding"
	healthuc "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/health"
	orderuc "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/order"
	searchuc "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/search"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/version"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ClickShop API server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("database", cfg.Database.Name),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Bool("mcp", cfg.MCP.Enabled),
	)

	metrics.Register()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)
	jsonColumns := cfg.Search.JSONColumns
	if len(jsonColumns) == 0 {
		jsonColumns = codec.DefaultJSONColumns()
	}
	decoder := codec.NewDecoder(jsonColumns...)

	store, err := aurora.NewStore(ctx, aurora.Config{
		ResourceARN: cfg.Database.ClusterARN,
		SecretARN:   cfg.Database.SecretARN,
		Database:    cfg.Database.Name,
		Region:      cfg.Database.Region,
		Endpoint:    cfg.Database.Endpoint,
	}, decoder)
	if err != nil {
		logger.Fatal("Failed to create Data API store", zap.Error(err))
	}

	// Literal runner: without it the mcp backend answers "no results".
	var literal db.QueryRunner
	if cfg.MCP.Enabled {
		runner, closeMCP, err := mcpquery.Dial(ctx, mcpquery.Config{
			Command:           cfg.MCP.Command,
			Args:              cfg.MCP.Args,
			Env:               cfg.MCP.Env,
			ConnectionMethod:  cfg.MCP.ConnectionMethod,
			DatabaseType:      "APG",
			Database:          cfg.Database.Name,
			ClusterIdentifier: cfg.MCP.ClusterIdentifier,
			DBEndpoint:        cfg.MCP.DBEndpoint,
			Region:            cfg.Database.Region,
		}, decoder)
		if err != nil {
			logger.Warn("MCP query server unavailable", zap.Error(err))
		} else {
			literal = runner
			defer func() { _ = closeMCP() }()
			logger.Info("Connected to MCP query server", zap.String("command", cfg.MCP.Command))
		}
	}

	var cache *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Cache.Addrs,
			Username:  cfg.Cache.Username,
			Password:  cfg.Cache.Password,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()
		if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeoutSec)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache")
	}

	embedder, err := buildEmbedder(ctx, cfg, cache, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}

	products := productrepo.New(store, literal)
	executor := searchuc.NewExecutor(products, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)

	var (
		ranked assistant.RankedSearcher
		images chiTransport.ImageSearcher
	)
	if embedder != nil {
		ranker := searchuc.NewRanker(products, embedder, executor, cfg.Retrieval())
		ranked = ranker
		if _, ok := embedder.(domain.ImageEmbedder); ok && cfg.Embedding.Provider == config.ProviderBedrock {
			images = ranker
		}
	}

	pricing, err := cfg.Pricing()
	if err != nil {
		logger.Fatal("Invalid pricing", zap.Error(err))
	}
	orders := orderuc.New(products, orderrepo.New(store), pricing)
	asst := assistant.New(executor, ranked, orders, cfg.Keywords(), request.Limits{
		Default: cfg.Search.DefaultLimit,
		Max:     cfg.Search.MaxLimit,
	})

	var (
		embeddingCheck healthuc.EmbeddingChecker
		cacheCheck     healthuc.Pinger
	)
	if embedder != nil {
		embeddingCheck = newEmbeddingHealthChecker(embedder)
	}
	if cache != nil {
		cacheCheck = cache
	}
	healthSvc := healthuc.New(store, embeddingCheck, cacheCheck)

	hub := activity.NewHub(cfg.Activity.SubscriberBuffer, metrics.ActivityDroppedTotal.Inc)

	server := chiTransport.NewServer(asst, catalog.New(products), images, healthSvc, hub, logger, chiTransport.Options{
		Uploads: chiTransport.Uploads{
			MaxBytes:     cfg.Upload.MaxImageBytes,
			AllowedTypes: cfg.ImageFormats(),
		},
		Heartbeat: time.Duration(cfg.Activity.HeartbeatSec) * time.Second,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
		// No write timeout: the activity stream stays open until the client leaves.
		ReadTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		IdleTimeout: time.Duration(cfg.HTTP.IdleTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker adapts an embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles provider -> cache -> instrumented -> instruction.
// Returns nil when embeddings are disabled.
func buildEmbedder(
	ctx context.Context, cfg config.Config, cache *dbRedis.Store, logger *zap.Logger,
) (domain.Embedder, error) {
	var base domain.Embedder
	switch cfg.Embedding.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderBedrock:
		b, err := bedrockEmb.NewEmbedder(ctx, bedrockEmb.Config{
			Region:     cfg.Embedding.Region,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		base = b
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   config.ProviderOpenAI,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	embedder := base
	if cache != nil {
		embedder = embcache.New(base, cache, embcache.Options{
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			TTL:        time.Duration(cfg.Cache.TTLSec) * time.Second,
			Lookups:    metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger)

	// Instruction prefix outermost so cache keys include it.
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction), nil
	}
	return embedder, nil
}
