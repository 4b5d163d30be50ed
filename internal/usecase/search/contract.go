package search

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

// ColumnResolver looks up the embedding configuration of a vector column.
type ColumnResolver interface {
	Column(ctx context.Context, table, column string) (vector.ColumnConfig, error)
}

// Embedder turns a query input into a vector with the column's model.
type Embedder interface {
	Embed(ctx context.Context, input string, cfg vector.ColumnConfig) ([]float32, error)
}
