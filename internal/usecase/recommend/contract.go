package recommend

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
}

// VectorColumns lists the configured vector columns of a table.
type VectorColumns interface {
	GetVectorColumns(ctx context.Context, table string) ([]vector.ColumnConfig, error)
}

// RecordReader fetches a record by id, resolving ids that lost precision.
type RecordReader interface {
	Get(ctx context.Context, table, id string) (result.Record, error)
}

// Embedder turns text into a vector with the column's model.
type Embedder interface {
	Embed(ctx context.Context, input string, cfg vector.ColumnConfig) ([]float32, error)
}
