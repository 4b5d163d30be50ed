package mantadmin

import (
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	recommenduc "github.com/kailas-cloud/mantadmin/internal/usecase/recommend"
)

// Filter is a single field predicate.
type Filter = query.Filter

// Operator is a filter comparison operator.
type Operator = query.Operator

// Filter operators.
const (
	OpEq       = query.Eq
	OpNe       = query.Ne
	OpGt       = query.Gt
	OpGte      = query.Gte
	OpLt       = query.Lt
	OpLte      = query.Lte
	OpIn       = query.In
	OpContains = query.Contains
)

// QueryStringField as a contains-filter field matches across all full-text fields.
const QueryStringField = query.QueryStringField

// Sorter orders results by a field.
type Sorter = query.Sorter

// Order is a sort direction.
type Order = query.Order

// Sort directions.
const (
	Asc  = query.Asc
	Desc = query.Desc
)

// Record is one row keyed by column name. Integer ids are json.Number.
type Record = result.Record

// Result is a page of records with the total match count and facets.
type Result = result.Normalized

// FacetBucket is one distinct value of a faceted field.
type FacetBucket = result.FacetBucket

// Mutation is the outcome of an insert, update or delete.
type Mutation = result.Mutation

// VectorColumn is the embedding configuration of one vector column.
type VectorColumn = vector.ColumnConfig

// CombinedFields describes source fields merged into one vector.
type CombinedFields = vector.CombinedFields

// FuzzyOptions controls the wildcard rewrite of free-text queries.
type FuzzyOptions = vector.FuzzyOptions

// RecommendRequest asks for records similar to a reference.
type RecommendRequest = recommenduc.Request

// RecommendResponse carries the recommendations and timings.
type RecommendResponse = recommenduc.Response

// Recommendation is one similar record.
type Recommendation = recommenduc.Item

// Reference input kinds of a recommendation.
const (
	InputID     = recommenduc.InputID
	InputVector = recommenduc.InputVector
	InputText   = recommenduc.InputText
)

// ListOptions selects a page of records.
type ListOptions struct {
	Page     int
	PageSize int
	Sorters  []Sorter
	Filters  []Filter
	// SQL compiles the list to a SELECT instead of a search request.
	SQL bool
}
