package mantadmin

import (
	"context"
	"fmt"
	"time"
)

// VectorColumnService manages the embedding settings of one table's vector columns.
type VectorColumnService struct {
	table string
	svc   vectorColumnUseCase
	obs   *observer
}

// List returns the configured vector columns, served from the metadata cache.
func (s *VectorColumnService) List(ctx context.Context) (_ []VectorColumn, err error) {
	start := time.Now()
	defer func() { s.obs.observe("vector_columns.list", s.table, start, err) }()

	cols, err := s.svc.GetVectorColumns(ctx, s.table)
	if err != nil {
		return nil, fmt.Errorf("vector columns of %s: %w", s.table, err)
	}
	return cols, nil
}

// Save stores the settings of column. The table's cache entry is invalidated.
func (s *VectorColumnService) Save(ctx context.Context, column string, cfg VectorColumn) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("vector_columns.save", s.table, start, err) }()

	cfg.Table = s.table
	cfg.Column = column
	if err = s.svc.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save vector column %s.%s: %w", s.table, column, err)
	}
	return nil
}

// Delete removes the settings of column.
func (s *VectorColumnService) Delete(ctx context.Context, column string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("vector_columns.delete", s.table, start, err) }()

	if err = s.svc.Delete(ctx, s.table, column); err != nil {
		return fmt.Errorf("delete vector column %s.%s: %w", s.table, column, err)
	}
	return nil
}

// Refresh drops the cached settings so the next read goes to the backend.
func (s *VectorColumnService) Refresh() {
	s.svc.Invalidate(s.table)
}
