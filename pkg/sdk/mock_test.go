package mantadmin

import (
	"context"

	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	healthuc "github.com/kailas-cloud/mantadmin/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/mantadmin/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/mantadmin/internal/usecase/search"
)

// --- recordUseCase mock ---

type mockRecordUC struct {
	listFn    func(ctx context.Context, spec query.Spec) (result.Normalized, error)
	listSQLFn func(ctx context.Context, spec query.Spec) (result.Normalized, error)
	getFn     func(ctx context.Context, table, id string) (result.Record, error)
	createFn  func(ctx context.Context, table string, doc map[string]any) (result.Mutation, error)
	updateFn  func(ctx context.Context, table, id string, doc map[string]any) (result.Mutation, error)
	deleteFn  func(ctx context.Context, table, id string) (result.Mutation, error)
	executeFn func(ctx context.Context, command string, raw bool) (result.Normalized, error)
}

func (m *mockRecordUC) List(ctx context.Context, spec query.Spec) (result.Normalized, error) {
	return m.listFn(ctx, spec)
}

func (m *mockRecordUC) ListSQL(ctx context.Context, spec query.Spec) (result.Normalized, error) {
	return m.listSQLFn(ctx, spec)
}

func (m *mockRecordUC) Get(ctx context.Context, table, id string) (result.Record, error) {
	return m.getFn(ctx, table, id)
}

func (m *mockRecordUC) Create(ctx context.Context, table string, doc map[string]any) (result.Mutation, error) {
	return m.createFn(ctx, table, doc)
}

func (m *mockRecordUC) Update(
	ctx context.Context, table, id string, doc map[string]any,
) (result.Mutation, error) {
	return m.updateFn(ctx, table, id, doc)
}

func (m *mockRecordUC) Delete(ctx context.Context, table, id string) (result.Mutation, error) {
	return m.deleteFn(ctx, table, id)
}

func (m *mockRecordUC) Execute(ctx context.Context, command string, raw bool) (result.Normalized, error) {
	return m.executeFn(ctx, command, raw)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req searchuc.Request) (result.Normalized, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req searchuc.Request) (result.Normalized, error) {
	return m.searchFn(ctx, req)
}

// --- vectorColumnUseCase mock ---

type mockColumnUC struct {
	getFn       func(ctx context.Context, table string) ([]vector.ColumnConfig, error)
	saveFn      func(ctx context.Context, cfg vector.ColumnConfig) error
	deleteFn    func(ctx context.Context, table, column string) error
	invalidated []string
}

func (m *mockColumnUC) GetVectorColumns(ctx context.Context, table string) ([]vector.ColumnConfig, error) {
	return m.getFn(ctx, table)
}

func (m *mockColumnUC) Save(ctx context.Context, cfg vector.ColumnConfig) error {
	return m.saveFn(ctx, cfg)
}

func (m *mockColumnUC) Delete(ctx context.Context, table, column string) error {
	return m.deleteFn(ctx, table, column)
}

func (m *mockColumnUC) Invalidate(table string) {
	m.invalidated = append(m.invalidated, table)
}

// --- recommendUseCase mock ---

type mockRecommendUC struct {
	recommendFn func(ctx context.Context, req recommenduc.Request) (recommenduc.Response, error)
}

func (m *mockRecommendUC) Recommend(ctx context.Context, req recommenduc.Request) (recommenduc.Response, error) {
	return m.recommendFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}
