// Package vectorcols resolves and caches the vector column configuration of tables.
package vectorcols

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/mantadmin/internal/cache"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// DefaultTTL is how long a table's configuration is served from cache.
const DefaultTTL = 5 * time.Minute

// Service serves vector column configuration through a per-table TTL cache.
// Concurrent misses for one table share a single fetch.
type Service struct {
	repo       Repository
	cache      *cache.TTL[[]vector.ColumnConfig]
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates the service. cacheTotal has label "result" ("hit"/"miss"/"error") and may be nil.
func New(
	repo Repository,
	c *cache.TTL[[]vector.ColumnConfig],
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Service {
	if c == nil {
		c = cache.NewTTL[[]vector.ColumnConfig](DefaultTTL, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, cache: c, cacheTotal: cacheTotal, logger: logger}
}

// GetVectorColumns returns the vector columns of table.
// A failed fetch degrades to an empty list and is not cached.
// The only error returned is the caller's context error.
func (s *Service) GetVectorColumns(ctx context.Context, table string) ([]vector.ColumnConfig, error) {
	if e, ok := s.cache.Get(table); ok {
		s.inc("hit")
		return slices.Clone(e.Data), nil
	}
	s.inc("miss")

	// The shared fetch outlives any single caller's cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(table, func() (any, error) {
		if e, ok := s.cache.Get(table); ok {
			return e.Data, nil
		}
		cols, err := s.repo.Fetch(fetchCtx, table)
		if err != nil {
			return nil, err
		}
		s.cache.Set(table, cols)
		return cols, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get vector columns: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			s.inc("error")
			s.logger.Warn("Failed to fetch vector column settings",
				zap.String("table", table),
				zap.Error(res.Err),
			)
			return []vector.ColumnConfig{}, nil
		}
		return slices.Clone(res.Val.([]vector.ColumnConfig)), nil
	}
}

// Column returns the configuration of one column, or a VectorConfigMissingError.
func (s *Service) Column(ctx context.Context, table, column string) (vector.ColumnConfig, error) {
	cols, err := s.GetVectorColumns(ctx, table)
	if err != nil {
		return vector.ColumnConfig{}, err
	}
	for _, c := range cols {
		if c.Column == column {
			return c, nil
		}
	}
	return vector.ColumnConfig{}, domain.NewVectorConfigMissing(table, column)
}

// First returns the first configured vector column of table.
func (s *Service) First(ctx context.Context, table string) (vector.ColumnConfig, error) {
	cols, err := s.GetVectorColumns(ctx, table)
	if err != nil {
		return vector.ColumnConfig{}, err
	}
	if len(cols) == 0 {
		return vector.ColumnConfig{}, domain.NewVectorConfigMissing(table, "")
	}
	return cols[0], nil
}

// Save stores column settings and drops the table's cached entry.
func (s *Service) Save(ctx context.Context, cfg vector.ColumnConfig) error {
	defer s.cache.Invalidate(cfg.Table)
	if err := s.repo.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save vector column: %w", err)
	}
	return nil
}

// Delete removes column settings and drops the table's cached entry.
func (s *Service) Delete(ctx context.Context, table, column string) error {
	defer s.cache.Invalidate(table)
	if err := s.repo.Delete(ctx, table, column); err != nil {
		return fmt.Errorf("delete vector column: %w", err)
	}
	return nil
}

// DeleteTable removes all settings of a table and drops its cached entry.
func (s *Service) DeleteTable(ctx context.Context, table string) error {
	defer s.cache.Invalidate(table)
	if err := s.repo.DeleteTable(ctx, table); err != nil {
		return fmt.Errorf("delete table vector settings: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry of one table.
func (s *Service) Invalidate(table string) { s.cache.Invalidate(table) }

// InvalidateAll empties the cache.
func (s *Service) InvalidateAll() { s.cache.InvalidateAll() }

func (s *Service) inc(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
