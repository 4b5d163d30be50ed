package chi

import (
	"context"

	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	healthuc "github.com/kailas-cloud/mantadmin/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/mantadmin/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/mantadmin/internal/usecase/search"
)

// RecordService covers record reads, writes and raw commands.
type RecordService interface {
	List(ctx context.Context, spec query.Spec) (result.Normalized, error)
	ListSQL(ctx context.Context, spec query.Spec) (result.Normalized, error)
	Get(ctx context.Context, table, id string) (result.Record, error)
	Create(ctx context.Context, table string, doc map[string]any) (result.Mutation, error)
	Update(ctx context.Context, table, id string, doc map[string]any) (result.Mutation, error)
	Delete(ctx context.Context, table, id string) (result.Mutation, error)
	Execute(ctx context.Context, command string, raw bool) (result.Normalized, error)
}

// SearchService runs composed searches.
type SearchService interface {
	Search(ctx context.Context, req searchuc.Request) (result.Normalized, error)
}

// VectorColumnService manages vector column settings.
type VectorColumnService interface {
	GetVectorColumns(ctx context.Context, table string) ([]vector.ColumnConfig, error)
	Save(ctx context.Context, cfg vector.ColumnConfig) error
	Delete(ctx context.Context, table, column string) error
}

// Recommender finds records similar to a reference.
type Recommender interface {
	Recommend(ctx context.Context, req recommenduc.Request) (recommenduc.Response, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
