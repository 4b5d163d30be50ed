package vectorcols

import (
	"context"

	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// Repository defines the storage contract for vector column settings.
type Repository interface {
	Fetch(ctx context.Context, table string) ([]vector.ColumnConfig, error)
	Save(ctx context.Context, cfg vector.ColumnConfig) error
	Delete(ctx context.Context, table, column string) error
	DeleteTable(ctx context.Context, table string) error
}
