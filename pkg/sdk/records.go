package mantadmin

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/mantadmin/internal/domain/query"
)

// Default page of a list without pagination.
const (
	defaultPage     = 1
	defaultPageSize = 20
)

// RecordService provides list and CRUD operations on one table.
type RecordService struct {
	table string
	svc   recordUseCase
	obs   *observer
}

// List returns a page of records matching the filters.
func (s *RecordService) List(ctx context.Context, opts ListOptions) (_ Result, err error) {
	start := time.Now()
	defer func() { s.obs.observe("records.list", s.table, start, err) }()

	spec := query.Spec{
		Resource: s.table,
		Pagination: query.Pagination{
			Page:     opts.Page,
			PageSize: opts.PageSize,
		},
		Sorters: opts.Sorters,
		Filters: opts.Filters,
	}
	if spec.Pagination.Page == 0 {
		spec.Pagination.Page = defaultPage
	}
	if spec.Pagination.PageSize == 0 {
		spec.Pagination.PageSize = defaultPageSize
	}

	list := s.svc.List
	if opts.SQL {
		list = s.svc.ListSQL
	}
	res, err := list(ctx, spec)
	if err != nil {
		return Result{}, fmt.Errorf("list %s: %w", s.table, err)
	}
	return res, nil
}

// Get returns a record by id. Ids beyond float64 precision are resolved
// through a range scan.
func (s *RecordService) Get(ctx context.Context, id string) (_ Record, err error) {
	start := time.Now()
	defer func() { s.obs.observe("records.get", s.table, start, err) }()

	rec, err := s.svc.Get(ctx, s.table, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.table, id, err)
	}
	return rec, nil
}

// Create inserts a record. Multi-field vector columns are embedded from the document.
func (s *RecordService) Create(ctx context.Context, doc map[string]any) (_ Mutation, err error) {
	start := time.Now()
	defer func() { s.obs.observe("records.create", s.table, start, err) }()

	m, err := s.svc.Create(ctx, s.table, doc)
	if err != nil {
		return Mutation{}, fmt.Errorf("create in %s: %w", s.table, err)
	}
	return m, nil
}

// Update replaces the given fields of a record.
func (s *RecordService) Update(ctx context.Context, id string, doc map[string]any) (_ Mutation, err error) {
	start := time.Now()
	defer func() { s.obs.observe("records.update", s.table, start, err) }()

	m, err := s.svc.Update(ctx, s.table, id, doc)
	if err != nil {
		return Mutation{}, fmt.Errorf("update %s/%s: %w", s.table, id, err)
	}
	return m, nil
}

// Delete removes a record by id.
func (s *RecordService) Delete(ctx context.Context, id string) (_ Mutation, err error) {
	start := time.Now()
	defer func() { s.obs.observe("records.delete", s.table, start, err) }()

	m, err := s.svc.Delete(ctx, s.table, id)
	if err != nil {
		return Mutation{}, fmt.Errorf("delete %s/%s: %w", s.table, id, err)
	}
	return m, nil
}
