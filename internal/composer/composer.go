// Package composer assembles search requests for keyword, filter and vector intents.
package composer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/mantadmin/internal/compiler"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/dsl"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// Intent selects how the request is built.
type Intent string

// Intents.
const (
	Basic    Intent = "basic"
	Advanced Intent = "advanced"
	Vector   Intent = "vector"
)

// IsValid checks if the intent is known.
func (i Intent) IsValid() bool {
	return i == Basic || i == Advanced || i == Vector
}

// Oversampling of the vector stage when a keyword narrows KNN candidates.
// The vector stage fetches max(k*DefaultOversampleFactor, DefaultOversampleFloor).
const (
	DefaultOversampleFactor = 10
	DefaultOversampleFloor  = 1000
)

// DefaultK is used when a vector request carries no k.
const DefaultK = 10

// minFuzzyTokenLen is the shortest token that gets wildcards.
const minFuzzyTokenLen = 3

// Params are the inputs of a composed search.
type Params struct {
	Table string
	// Query is free text for the basic intent.
	Query string
	Fuzzy *vector.FuzzyOptions
	// Filters are compiled through the record compiler's filter path.
	Filters             []query.Filter
	Vector              *vector.SearchSpec
	Facets              []vector.Facet
	AppliedFacetFilters map[string][]any
	Sorters             []query.Sorter
	Pagination          query.Pagination
}

// Option configures a Composer.
type Option func(*Composer)

// WithOversampling overrides the hybrid oversampling constants.
func WithOversampling(factor, floor int) Option {
	return func(c *Composer) {
		if factor > 0 {
			c.oversampleFactor = factor
		}
		if floor >= 0 {
			c.oversampleFloor = floor
		}
	}
}

// Composer builds search requests.
type Composer struct {
	oversampleFactor int
	oversampleFloor  int
}

// New creates a Composer with the default oversampling.
func New(opts ...Option) *Composer {
	c := &Composer{
		oversampleFactor: DefaultOversampleFactor,
		oversampleFloor:  DefaultOversampleFloor,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compose builds the search request for an intent.
func (c *Composer) Compose(intent Intent, p Params) (dsl.SearchRequest, error) {
	if !intent.IsValid() {
		return dsl.SearchRequest{}, domain.NewCompilationError("compose", "unknown intent %q", intent)
	}
	if p.Table == "" {
		return dsl.SearchRequest{}, domain.NewCompilationError("compose", "table is required")
	}

	filters, err := compiler.Filters(p.Filters)
	if err != nil {
		return dsl.SearchRequest{}, err
	}
	facetFilter := FacetFilter(p.AppliedFacetFilters)
	aggs, err := Aggregations(p.Facets)
	if err != nil {
		return dsl.SearchRequest{}, err
	}
	sorts, err := compiler.Sort(p.Sorters)
	if err != nil {
		return dsl.SearchRequest{}, err
	}

	req := dsl.SearchRequest{
		Table: p.Table,
		Aggs:  aggs,
		Sort:  sorts,
	}
	if p.Fuzzy != nil {
		req.Options = fuzzyOptions(*p.Fuzzy)
	}

	if p.Pagination != (query.Pagination{}) {
		if err := p.Pagination.Validate(); err != nil {
			return dsl.SearchRequest{}, domain.NewCompilationError("compose", "%v", err)
		}
		req.Limit = p.Pagination.Limit()
		req.Offset = p.Pagination.Offset()
	}

	switch intent {
	case Vector:
		knn, err := c.knn(p, filters, facetFilter)
		if err != nil {
			return dsl.SearchRequest{}, err
		}
		req.KNN = knn
		if req.Limit == 0 {
			req.Limit = p.Vector.K
			if req.Limit <= 0 {
				req.Limit = DefaultK
			}
		}
	default:
		req.Query = dsl.Conjoin(keyword(p.Query, p.Fuzzy), filters, facetFilter)
	}
	return req, nil
}

func (c *Composer) knn(p Params, filters, facetFilter dsl.Node) (*dsl.KNN, error) {
	spec := p.Vector
	if spec == nil || spec.Field == "" {
		return nil, domain.NewCompilationError("compose", "vector intent requires a vector field")
	}
	if len(spec.Vector) == 0 {
		return nil, domain.NewCompilationError("compose", "vector intent requires a query vector")
	}

	k := spec.K
	if k <= 0 {
		k = DefaultK
	}
	fuzzy := spec.Fuzzy
	if fuzzy == nil {
		fuzzy = p.Fuzzy
	}
	kw := keyword(spec.HybridQuery, fuzzy)
	if kw != nil {
		k = c.Oversample(k)
	}

	return &dsl.KNN{
		Field:       spec.Field,
		QueryVector: spec.Vector,
		K:           k,
		EF:          spec.EF,
		Filter:      dsl.Conjoin(kw, filters, facetFilter),
	}, nil
}

// Oversample returns the vector-stage k used when a keyword post-filters KNN results.
// The product saturates at math.MaxInt.
func (c *Composer) Oversample(k int) int {
	if c.oversampleFactor > 0 && k > math.MaxInt/c.oversampleFactor {
		return math.MaxInt
	}
	return max(k*c.oversampleFactor, c.oversampleFloor)
}

func keyword(q string, fuzzy *vector.FuzzyOptions) dsl.Node {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	if fuzzy != nil && fuzzy.Enabled {
		q = FuzzyQuery(q, fuzzy.PreserveOriginal)
	}
	return dsl.QueryString{Query: q}
}

// FuzzyQuery wraps every token of at least three characters in wildcards.
// With preserveOriginal the exact token stays as an alternative.
// Tokens that already carry wildcards are left alone.
func FuzzyQuery(q string, preserveOriginal bool) string {
	tokens := strings.Fields(q)
	for i, tok := range tokens {
		if utf8.RuneCountInString(tok) < minFuzzyTokenLen || strings.ContainsAny(tok, "*?") {
			continue
		}
		if preserveOriginal {
			tokens[i] = "(" + tok + " | *" + tok + "*)"
		} else {
			tokens[i] = "*" + tok + "*"
		}
	}
	return strings.Join(tokens, " ")
}

func fuzzyOptions(f vector.FuzzyOptions) map[string]any {
	if !f.Enabled || (f.Distance <= 0 && len(f.Layouts) == 0) {
		return nil
	}
	opts := map[string]any{"fuzzy": 1}
	if f.Distance > 0 {
		opts["distance"] = f.Distance
	}
	if len(f.Layouts) > 0 {
		opts["layouts"] = f.Layouts
	}
	return opts
}

// FacetName is the aggregation name of the i-th requested facet.
func FacetName(field string, i int) string {
	return fmt.Sprintf("facet_%s_%d", field, i)
}

// FacetFields maps aggregation names back to the faceted field.
func FacetFields(facets []vector.Facet) map[string]string {
	out := make(map[string]string, len(facets))
	for i, f := range facets {
		out[FacetName(f.Field, i)] = f.Field
	}
	return out
}

// Aggregations builds one uniquely named terms aggregation per facet.
func Aggregations(facets []vector.Facet) (map[string]dsl.Aggregation, error) {
	if len(facets) == 0 {
		return nil, nil
	}
	aggs := make(map[string]dsl.Aggregation, len(facets))
	for i, f := range facets {
		if f.Field == "" {
			return nil, domain.NewCompilationError("facet", "field is required")
		}
		agg := dsl.Aggregation{Terms: dsl.Terms{Field: f.Field, Size: f.Size}}
		if f.Order != "" {
			order := query.Order(strings.ToLower(f.Order))
			if !order.IsValid() {
				return nil, domain.NewCompilationError("facet", "invalid order %q for %s", f.Order, f.Field)
			}
			agg.Sort = []map[string]dsl.OrderSpec{{dsl.CountKey: {Order: string(order)}}}
		}
		aggs[FacetName(f.Field, i)] = agg
	}
	return aggs, nil
}

// FacetFilter turns selected facet values into a filter: values of one field are
// alternatives, different fields must all match. Fields are ordered by name.
func FacetFilter(applied map[string][]any) dsl.Node {
	fields := make([]string, 0, len(applied))
	for f, values := range applied {
		if len(values) > 0 {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)

	perField := make([]dsl.Node, 0, len(fields))
	for _, f := range fields {
		alts := make([]dsl.Node, 0, len(applied[f]))
		for _, v := range applied[f] {
			alts = append(alts, dsl.Equals{Field: f, Value: v})
		}
		perField = append(perField, dsl.Disjoin(alts...))
	}
	return dsl.Conjoin(perField...)
}
