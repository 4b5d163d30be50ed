package mantadmin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/mantadmin/internal/cache"
	"github.com/kailas-cloud/mantadmin/internal/composer"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	"github.com/kailas-cloud/mantadmin/internal/normalizer"
	"github.com/kailas-cloud/mantadmin/internal/repository/vectormeta"
	"github.com/kailas-cloud/mantadmin/internal/transport/embedsvc"
	"github.com/kailas-cloud/mantadmin/internal/transport/manticore"
	embeddinguc "github.com/kailas-cloud/mantadmin/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/mantadmin/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/mantadmin/internal/usecase/recommend"
	recordsuc "github.com/kailas-cloud/mantadmin/internal/usecase/records"
	searchuc "github.com/kailas-cloud/mantadmin/internal/usecase/search"
	"github.com/kailas-cloud/mantadmin/internal/usecase/vectorcols"
)

const defaultMetadataTTL = 5 * time.Minute

// Internal use case interfaces, swapped for fakes in tests.
type recordUseCase interface {
	List(ctx context.Context, spec query.Spec) (result.Normalized, error)
	ListSQL(ctx context.Context, spec query.Spec) (result.Normalized, error)
	Get(ctx context.Context, table, id string) (result.Record, error)
	Create(ctx context.Context, table string, doc map[string]any) (result.Mutation, error)
	Update(ctx context.Context, table, id string, doc map[string]any) (result.Mutation, error)
	Delete(ctx context.Context, table, id string) (result.Mutation, error)
	Execute(ctx context.Context, command string, raw bool) (result.Normalized, error)
}

type searchUseCase interface {
	Search(ctx context.Context, req searchuc.Request) (result.Normalized, error)
}

type vectorColumnUseCase interface {
	GetVectorColumns(ctx context.Context, table string) ([]vector.ColumnConfig, error)
	Save(ctx context.Context, cfg vector.ColumnConfig) error
	Delete(ctx context.Context, table, column string) error
	Invalidate(table string)
}

type recommendUseCase interface {
	Recommend(ctx context.Context, req recommenduc.Request) (recommenduc.Response, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the mantadmin SDK entry point.
type Client struct {
	recordSvc    recordUseCase
	searchSvc    searchUseCase
	columnSvc    vectorColumnUseCase
	recommendSvc recommendUseCase
	healthSvc    healthUseCase
	obs          *observer
	stop         context.CancelFunc
}

// New creates a Client for one Manticore instance.
// The provided context is used for the optional settings table bootstrap.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{metadataTTL: defaultMetadataTTL}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.manticoreURL == "" {
		return nil, errors.New("mantadmin: backend address required (use WithManticore)")
	}
	if cfg.metadataTTL <= 0 {
		return nil, fmt.Errorf("mantadmin: metadata TTL must be positive, got %s", cfg.metadataTTL)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	backend, err := manticore.New(manticore.Config{
		BaseURL:    cfg.manticoreURL,
		HTTPClient: cfg.httpClient,
		Logger:     cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("mantadmin: %w", err)
	}

	var svc *embedsvc.Client
	if cfg.embeddingURL != "" {
		svc, err = embedsvc.New(embedsvc.Config{
			BaseURL:      cfg.embeddingURL,
			HTTPClient:   cfg.httpClient,
			DefaultModel: cfg.embeddingModel,
			Logger:       cfg.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("mantadmin: %w", err)
		}
	}

	norm := normalizer.New(cfg.logger)
	metaRepo := vectormeta.New(backend, norm, nil, cfg.logger)
	if cfg.ensureSettings {
		if err := metaRepo.EnsureSettingsTable(ctx); err != nil {
			return nil, fmt.Errorf("mantadmin: ensure settings table: %w", err)
		}
	}

	runCtx, stop := context.WithCancel(context.Background())
	metaCache := cache.NewTTL[[]vector.ColumnConfig](cfg.metadataTTL, nil)
	go metaCache.Run(runCtx, sweepInterval(cfg.metadataTTL))
	columns := vectorcols.New(metaRepo, metaCache, nil, cfg.logger)

	orchestrator := newOrchestrator(cfg, svc)

	var comp *composer.Composer
	if cfg.oversamplingFactor > 0 || cfg.oversamplingFloor > 0 {
		comp = composer.New(composer.WithOversampling(cfg.oversamplingFactor, cfg.oversamplingFloor))
	}

	records := recordsuc.New(backend, norm, columns, orchestrator, cfg.logger)

	var embHealth healthuc.EmbeddingChecker
	if svc != nil {
		embHealth = svc
	}

	return &Client{
		recordSvc:    records,
		searchSvc:    searchuc.New(backend, norm, columns, orchestrator, comp, cfg.logger),
		columnSvc:    columns,
		recommendSvc: recommenduc.New(backend, norm, columns, records, orchestrator, comp, cfg.logger),
		healthSvc:    healthuc.New(backend, embHealth, nil, cfg.logger),
		obs:          obs,
		stop:         stop,
	}, nil
}

// newOrchestrator picks the text provider: a custom embedder wins over the service.
func newOrchestrator(cfg *clientConfig, svc *embedsvc.Client) *embeddinguc.Orchestrator {
	var (
		text     domain.TextEmbedder = noopEmbedder{}
		image    domain.ImageEmbedder
		combined domain.CombinedEmbedder
	)
	if svc != nil {
		text, image, combined = svc, svc, svc
	}
	if cfg.textEmbedder != nil {
		text = cfg.textEmbedder
	}
	return embeddinguc.NewOrchestrator(text, image, combined, cfg.logger)
}

func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 5; d > 0 {
		return d
	}
	return ttl
}

// Close stops the metadata cache sweeper.
func (c *Client) Close() {
	if c.stop != nil {
		c.stop()
	}
}

// Records returns the record service for a given table.
func (c *Client) Records(table string) *RecordService {
	return &RecordService{table: table, svc: c.recordSvc, obs: c.obs}
}

// Search starts a search on a given table.
func (c *Client) Search(table string) *SearchBuilder {
	return &SearchBuilder{table: table, svc: c.searchSvc, obs: c.obs}
}

// VectorColumns returns the vector column settings service for a given table.
func (c *Client) VectorColumns(table string) *VectorColumnService {
	return &VectorColumnService{table: table, svc: c.columnSvc, obs: c.obs}
}

// SQL runs a raw SQL command. raw passes mode=raw to the backend and
// returns the result sets as admin rows.
func (c *Client) SQL(ctx context.Context, command string, raw bool) (_ Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("sql", "", start, err) }()

	res, err := c.recordSvc.Execute(ctx, command, raw)
	if err != nil {
		return Result{}, fmt.Errorf("sql: %w", err)
	}
	return res, nil
}

// noopEmbedder rejects text embedding when no provider is configured.
type noopEmbedder struct{}

func (noopEmbedder) EmbedTexts(_ context.Context, _ string, _ []string) ([][]float32, error) {
	return nil, fmt.Errorf(
		"mantadmin: text embedder not configured (use WithEmbeddingService or WithTextEmbedder): %w",
		domain.ErrEmbeddingProviderError,
	)
}
