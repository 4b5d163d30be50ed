package records

import (
	"context"

	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// Backend sends compiled requests to the search backend.
type Backend interface {
	Do(ctx context.Context, req request.Compiled) ([]byte, error)
}

// Normalizer decodes backend responses.
type Normalizer interface {
	Normalize(raw []byte, shape result.Shape) (result.Normalized, error)
	Mutation(raw []byte) (result.Mutation, error)
}

// VectorColumns reads the vector column configuration of a table.
type VectorColumns interface {
	GetVectorColumns(ctx context.Context, table string) ([]vector.ColumnConfig, error)
}

// RecordEmbedder generates combined vectors of multi-field columns.
type RecordEmbedder interface {
	EmbedRecord(ctx context.Context, record map[string]any, cfg vector.ColumnConfig) ([]float32, error)
}
