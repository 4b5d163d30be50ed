package chi

import (
	"github.com/kailas-cloud/mantadmin/internal/composer"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	healthuc "github.com/kailas-cloud/mantadmin/internal/usecase/health"
)

// ErrorCode is a machine-readable error code in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest            ErrorCode = "bad_request"
	CodeUnauthorized          ErrorCode = "unauthorized"
	CodeNotFound              ErrorCode = "not_found"
	CodeValidationFailed      ErrorCode = "validation_failed"
	CodeCompilationFailed     ErrorCode = "compilation_failed"
	CodeVectorConfigMissing   ErrorCode = "vector_config_missing"
	CodeVectorDimMismatch     ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingProviderErr  ErrorCode = "embedding_provider_error"
	CodeBackendError          ErrorCode = "backend_error"
	CodeBackendResponseFormat ErrorCode = "backend_response_invalid"
	CodeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ListRequest is the body of POST /v1/tables/{table}/records:list.
type ListRequest struct {
	Pagination query.Pagination `json:"pagination"`
	Sorters    []query.Sorter   `json:"sorters,omitempty"`
	Filters    []query.Filter   `json:"filters,omitempty"`
}

// RecordResponse wraps a single record.
type RecordResponse struct {
	Record result.Record `json:"record"`
}

// SQLRequest is the body of POST /v1/sql.
type SQLRequest struct {
	Command string `json:"command"`
}

// VectorQuery is the vector part of a search request.
type VectorQuery struct {
	Column      string    `json:"column"`
	Values      []float32 `json:"values,omitempty"`
	Input       string    `json:"input,omitempty"`
	K           int       `json:"k,omitempty"`
	EF          *int      `json:"ef,omitempty"`
	HybridQuery string    `json:"hybrid_query,omitempty"`
}

// SearchRequest is the body of POST /v1/tables/{table}/search.
type SearchRequest struct {
	Intent              composer.Intent      `json:"intent,omitempty"`
	Query               string               `json:"query,omitempty"`
	Fuzzy               *vector.FuzzyOptions `json:"fuzzy,omitempty"`
	Filters             []query.Filter       `json:"filters,omitempty"`
	Sorters             []query.Sorter       `json:"sorters,omitempty"`
	Pagination          *query.Pagination    `json:"pagination,omitempty"`
	Facets              []vector.Facet       `json:"facets,omitempty"`
	AppliedFacetFilters map[string][]any     `json:"applied_facet_filters,omitempty"`
	Vector              *VectorQuery         `json:"vector,omitempty"`
}

// VectorColumnRequest is the body of PUT /v1/tables/{table}/vector-columns/{column}.
type VectorColumnRequest struct {
	ModelName      string                 `json:"model_name"`
	CombinedFields *vector.CombinedFields `json:"combined_fields,omitempty"`
}

// VectorColumnsResponse lists the configured vector columns of a table.
type VectorColumnsResponse struct {
	Table   string                `json:"table"`
	Columns []vector.ColumnConfig `json:"columns"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}
