package mantadmin

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/mantadmin/internal/composer"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	searchuc "github.com/kailas-cloud/mantadmin/internal/usecase/search"
)

// Intent selects how a search request is built.
type Intent = composer.Intent

// Search intents. An empty intent is inferred from the request.
const (
	IntentBasic    = composer.Basic
	IntentAdvanced = composer.Advanced
	IntentVector   = composer.Vector
)

// SearchBuilder is a fluent builder for search queries.
type SearchBuilder struct {
	table string
	svc   searchUseCase
	obs   *observer

	req searchuc.Request
}

// Intent forces the search intent.
func (b *SearchBuilder) Intent(i Intent) *SearchBuilder {
	b.req.Intent = i
	return b
}

// Query sets the free-text query.
func (b *SearchBuilder) Query(q string) *SearchBuilder {
	b.req.Query = q
	return b
}

// Fuzzy enables the wildcard rewrite of the query.
func (b *SearchBuilder) Fuzzy(opts FuzzyOptions) *SearchBuilder {
	opts.Enabled = true
	b.req.Fuzzy = &opts
	return b
}

// Where adds a filter.
func (b *SearchBuilder) Where(field string, op Operator, value any) *SearchBuilder {
	b.req.Filters = append(b.req.Filters, query.Filter{Field: field, Operator: op, Value: value})
	return b
}

// Sort adds a sort field.
func (b *SearchBuilder) Sort(field string, order Order) *SearchBuilder {
	b.req.Sorters = append(b.req.Sorters, query.Sorter{Field: field, Order: order})
	return b
}

// Page sets the result window.
func (b *SearchBuilder) Page(page, size int) *SearchBuilder {
	b.req.Pagination = query.Pagination{Page: page, PageSize: size}
	return b
}

// Facet requests a terms aggregation on field. size 0 uses the backend default.
func (b *SearchBuilder) Facet(field string, size int) *SearchBuilder {
	b.req.Facets = append(b.req.Facets, vector.Facet{Field: field, Size: size})
	return b
}

// FacetFilter narrows results to the selected values of a faceted field.
func (b *SearchBuilder) FacetFilter(field string, values ...any) *SearchBuilder {
	if b.req.AppliedFacetFilters == nil {
		b.req.AppliedFacetFilters = make(map[string][]any)
	}
	b.req.AppliedFacetFilters[field] = append(b.req.AppliedFacetFilters[field], values...)
	return b
}

// Vector makes the search a KNN search on column. Without Values or Input
// the query text is embedded with the column's model.
func (b *SearchBuilder) Vector(column string) *SearchBuilder {
	b.req.VectorColumn = column
	return b
}

// Values sets the query vector as is.
func (b *SearchBuilder) Values(v []float32) *SearchBuilder {
	b.req.Vector = v
	return b
}

// Input sets the text or image to embed instead of the query.
func (b *SearchBuilder) Input(in string) *SearchBuilder {
	b.req.VectorInput = in
	return b
}

// K sets the number of nearest neighbors.
func (b *SearchBuilder) K(k int) *SearchBuilder {
	b.req.K = k
	return b
}

// EF sets the HNSW search breadth.
func (b *SearchBuilder) EF(ef int) *SearchBuilder {
	b.req.EF = &ef
	return b
}

// Hybrid narrows KNN candidates by a keyword query.
func (b *SearchBuilder) Hybrid(q string) *SearchBuilder {
	b.req.HybridQuery = q
	return b
}

// Do executes the search.
func (b *SearchBuilder) Do(ctx context.Context) (_ Result, err error) {
	start := time.Now()
	defer func() { b.obs.observe("search", b.table, start, err) }()

	req := b.req
	req.Table = b.table
	if req.Pagination.Page == 0 {
		req.Pagination.Page = defaultPage
	}
	if req.Pagination.PageSize == 0 {
		req.Pagination.PageSize = defaultPageSize
	}

	res, err := b.svc.Search(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("search %s: %w", b.table, err)
	}
	return res, nil
}
