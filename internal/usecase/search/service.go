// Package search runs keyword, filtered and vector searches: embed the query when
// needed, compose the request, call the backend and normalize the answer.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/composer"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// Request is one search. Intent is inferred when empty: a vector column selects
// the vector intent, filters the advanced one, anything else is basic.
type Request struct {
	Intent              composer.Intent
	Table               string
	Query               string
	Fuzzy               *vector.FuzzyOptions
	Filters             []query.Filter
	Sorters             []query.Sorter
	Pagination          query.Pagination
	Facets              []vector.Facet
	AppliedFacetFilters map[string][]any

	VectorColumn string
	// Vector is used as is; when empty, VectorInput (or Query) is embedded.
	Vector      []float32
	VectorInput string
	K           int
	EF          *int
	HybridQuery string
}

// Service executes searches.
type Service struct {
	backend  Backend
	norm     Normalizer
	cols     ColumnResolver
	embedder Embedder
	composer *composer.Composer
	logger   *zap.Logger
}

// New creates a search service. A nil composer uses the default oversampling.
func New(b Backend, n Normalizer, cols ColumnResolver, embedder Embedder, c *composer.Composer, logger *zap.Logger) *Service {
	if c == nil {
		c = composer.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: b, norm: n, cols: cols, embedder: embedder, composer: c, logger: logger}
}

// Search runs the request. Facets in the result are keyed by field name.
func (s *Service) Search(ctx context.Context, req Request) (result.Normalized, error) {
	compiled, err := s.Compile(ctx, req)
	if err != nil {
		return result.Normalized{}, err
	}

	raw, err := s.backend.Do(ctx, compiled)
	if err != nil {
		return result.Normalized{}, fmt.Errorf("search %s: %w", req.Table, err)
	}
	res, err := s.norm.Normalize(raw, compiled.Shape())
	if err != nil {
		return result.Normalized{}, fmt.Errorf("search %s: %w", req.Table, err)
	}
	res.Facets = rekeyFacets(res.Facets, req.Facets)
	return res, nil
}

// Compile resolves the query vector and builds the backend request without sending it.
func (s *Service) Compile(ctx context.Context, req Request) (request.Compiled, error) {
	intent := req.Intent
	if intent == "" {
		intent = inferIntent(req)
	}

	params := composer.Params{
		Table:               req.Table,
		Query:               req.Query,
		Fuzzy:               req.Fuzzy,
		Filters:             req.Filters,
		Facets:              req.Facets,
		AppliedFacetFilters: req.AppliedFacetFilters,
		Sorters:             req.Sorters,
		Pagination:          req.Pagination,
	}
	if intent == composer.Vector {
		vec, err := s.queryVector(ctx, req)
		if err != nil {
			return request.Compiled{}, err
		}
		params.Vector = &vector.SearchSpec{
			Field:       req.VectorColumn,
			Vector:      vec,
			K:           req.K,
			EF:          req.EF,
			HybridQuery: req.HybridQuery,
		}
	}

	body, err := s.composer.Compose(intent, params)
	if err != nil {
		return request.Compiled{}, err
	}
	compiled, err := request.NewJSON(request.PathSearch, body, result.Hits)
	if err != nil {
		return request.Compiled{}, domain.NewCompilationError("search", "%v", err)
	}
	return compiled, nil
}

func (s *Service) queryVector(ctx context.Context, req Request) ([]float32, error) {
	if len(req.Vector) > 0 {
		return req.Vector, nil
	}
	if req.VectorColumn == "" {
		return nil, domain.NewCompilationError("search", "vector intent requires a vector column")
	}
	input := strings.TrimSpace(req.VectorInput)
	if input == "" {
		input = strings.TrimSpace(req.Query)
	}
	if input == "" {
		return nil, domain.NewCompilationError("search", "vector intent requires a vector or an input to embed")
	}

	cfg, err := s.cols.Column(ctx, req.Table, req.VectorColumn)
	if err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, input, cfg)
	if err != nil {
		return nil, fmt.Errorf("embed search input: %w", err)
	}
	s.logger.Debug("Embedded search input",
		zap.String("table", req.Table),
		zap.String("column", req.VectorColumn),
		zap.String("model", cfg.ModelName),
		zap.Int("dimensions", len(vec)),
	)
	return vec, nil
}

func inferIntent(req Request) composer.Intent {
	switch {
	case req.VectorColumn != "" || len(req.Vector) > 0:
		return composer.Vector
	case len(req.Filters) > 0:
		return composer.Advanced
	default:
		return composer.Basic
	}
}

// rekeyFacets renames aggregations to their field. A field faceted twice keeps
// the aggregation name for its later occurrences.
func rekeyFacets(facets map[string][]result.FacetBucket, requested []vector.Facet) map[string][]result.FacetBucket {
	if len(facets) == 0 {
		return facets
	}
	out := make(map[string][]result.FacetBucket, len(facets))
	for i, f := range requested {
		name := composer.FacetName(f.Field, i)
		buckets, ok := facets[name]
		if !ok {
			continue
		}
		if _, taken := out[f.Field]; taken {
			out[name] = buckets
		} else {
			out[f.Field] = buckets
		}
	}
	return out
}
