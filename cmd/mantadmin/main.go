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

	"github.com/kailas-cloud/mantadmin/internal/cache"
	"github.com/kailas-cloud/mantadmin/internal/composer"
	"github.com/kailas-cloud/mantadmin/internal/config"
	dbRedis "github.com/kailas-cloud/mantadmin/internal/db/redis"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	logpkg "github.com/kailas-cloud/mantadmin/internal/logger"
	"github.com/kailas-cloud/mantadmin/internal/metrics"
	"github.com/kailas-cloud/mantadmin/internal/normalizer"
	"github.com/kailas-cloud/mantadmin/internal/repository/embcache"
	"github.com/kailas-cloud/mantadmin/internal/repository/vectormeta"
	chiTransport "github.com/kailas-cloud/mantadmin/internal/transport/chi"
	"github.com/kailas-cloud/mantadmin/internal/transport/embedsvc"
	"github.com/kailas-cloud/mantadmin/internal/transport/manticore"
	openaiEmb "github.com/kailas-cloud/mantadmin/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/mantadmin/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/mantadmin/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/mantadmin/internal/usecase/recommend"
	recordsuc "github.com/kailas-cloud/mantadmin/internal/usecase/records"
	searchuc "github.com/kailas-cloud/mantadmin/internal/usecase/search"
	"github.com/kailas-cloud/mantadmin/internal/usecase/vectorcols"
	"github.com/kailas-cloud/mantadmin/internal/version"
)

func main() {
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

	logger.Info("Starting mantadmin API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_url", cfg.Backend.URL),
		zap.String("text_provider", cfg.Embedding.TextProvider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterBackendMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterHTTPMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Search backend
	backend, err := manticore.New(manticore.Config{
		BaseURL:    cfg.Backend.URL,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.Backend.TimeoutSec) * time.Second},
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("Failed to create backend client", zap.Error(err))
	}
	norm := normalizer.New(logger)

	// Vector column metadata: settings table + TTL cache
	metaRepo := vectormeta.New(backend, norm, nil, logger)
	if cfg.Backend.EnsureSettingsTable {
		if err := metaRepo.EnsureSettingsTable(ctx); err != nil {
			// Reads degrade to "no vector columns"; the table is retried on first save.
			logger.Warn("Failed to ensure vector settings table",
				zap.String("table", vector.SettingsTable),
				zap.Error(err),
			)
		}
	}
	metaCache := cache.NewTTL[[]vector.ColumnConfig](cfg.Cache.VectorColumnsTTL(), nil)
	go metaCache.Run(ctx, cfg.Cache.SweepInterval())
	columns := vectorcols.New(metaRepo, metaCache, metrics.VectorMetaCacheTotal, logger)

	// Embedding chain
	emb, err := buildEmbeddings(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create embedders", zap.Error(err))
	}
	defer emb.close()

	orchestrator := embeddinguc.NewOrchestrator(emb.text, emb.image, emb.combined, logger)

	// Use case services
	comp := composer.New(composer.WithOversampling(cfg.Search.OversamplingFactor, cfg.Search.OversamplingFloor))
	records := recordsuc.New(backend, norm, columns, orchestrator, logger)
	search := searchuc.New(backend, norm, columns, orchestrator, comp, logger)
	recommend := recommenduc.New(backend, norm, columns, records, orchestrator, comp, logger)
	health := healthuc.New(backend, emb.health, emb.cache, logger)

	server := chiTransport.NewServer(records, search, columns, recommend, health, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{APIKeys: cfg.Auth.APIKeys})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddings bundles the providers handed to the orchestrator and health checks.
// Interface fields stay nil (not typed nil pointers) when a provider is absent.
type embeddings struct {
	text     domain.TextEmbedder
	image    domain.ImageEmbedder
	combined domain.CombinedEmbedder
	health   healthuc.EmbeddingChecker
	cache    healthuc.Pinger
	close    func()
}

// buildEmbeddings assembles the text chain (provider -> Redis cache) and the
// embedding service clients for images and multi-field vectors.
func buildEmbeddings(ctx context.Context, cfg config.Config, logger *zap.Logger) (embeddings, error) {
	out := embeddings{close: func() {}}

	var svc *embedsvc.Client
	if cfg.Embedding.Service.URL != "" {
		c, err := embedsvc.New(embedsvc.Config{
			BaseURL:      cfg.Embedding.Service.URL,
			HTTPClient:   &http.Client{Timeout: time.Duration(cfg.Embedding.Service.TimeoutSec) * time.Second},
			DefaultModel: cfg.Embedding.Service.DefaultModel,
			Normalize:    cfg.Embedding.Service.Normalize,
			Logger:       logger,
		})
		if err != nil {
			return embeddings{}, fmt.Errorf("embedding service: %w", err)
		}
		svc = c
		out.image = svc
		out.combined = svc
		out.health = svc
	}

	switch cfg.Embedding.TextProvider {
	case config.ProviderOpenAI:
		oa := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.OpenAI.APIKey,
			BaseURL:    cfg.Embedding.OpenAI.BaseURL,
			Model:      cfg.Embedding.OpenAI.Model,
			Dimensions: cfg.Embedding.OpenAI.Dimensions,
			Provider:   cfg.Embedding.OpenAI.Provider,
			Logger:     logger,
		})
		out.text = oa
		if out.health == nil {
			out.health = oa
		}
	default:
		out.text = svc
	}

	if !cfg.Redis.Enabled() {
		return out, nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return embeddings{}, fmt.Errorf("embedding cache store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return embeddings{}, fmt.Errorf("embedding cache store not ready: %w", err)
	}
	logger.Info("Connected to embedding cache store", zap.Strings("addrs", cfg.Redis.Addrs))

	out.text = embcache.New(
		out.text, store,
		time.Duration(cfg.Redis.EmbeddingTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)
	out.cache = store
	out.close = store.Close
	return out, nil
}
