package compiler

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/dsl"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
)

func listSpec(filters ...query.Filter) query.Spec {
	return query.Spec{
		Resource:   "docs",
		Pagination: query.Pagination{Page: 1, PageSize: 10},
		Filters:    filters,
	}
}

func TestFilters_SingleIsNotWrapped(t *testing.T) {
	cases := []query.Filter{
		{Field: "brand", Operator: query.Eq, Value: "acme"},
		{Field: "price", Operator: query.Gte, Value: 100},
		{Field: "id", Operator: query.In, Value: []any{1, 2}},
		{Field: "title", Operator: query.Contains, Value: "shoe"},
		{Field: "brand", Operator: query.Ne, Value: "x"},
	}
	for _, f := range cases {
		t.Run(string(f.Operator), func(t *testing.T) {
			single, err := Filter(f)
			require.NoError(t, err)
			got, err := Filters([]query.Filter{f})
			require.NoError(t, err)
			assert.Equal(t, single, got)
			_, isAnd := got.(dsl.And)
			assert.False(t, isAnd, "single filter must not be wrapped in a conjunction")
		})
	}
}

func TestFilters_ManyAreConjoinedInOrder(t *testing.T) {
	fs := []query.Filter{
		{Field: "a", Operator: query.Eq, Value: 1},
		{Field: "b", Operator: query.Lt, Value: 2},
		{Field: "c", Operator: query.Contains, Value: "x"},
	}
	got, err := Filters(fs)
	require.NoError(t, err)

	and, ok := got.(dsl.And)
	require.True(t, ok, "expected conjunction, got %T", got)
	require.Len(t, and.Clauses, 3)
	for i, f := range fs {
		want, err := Filter(f)
		require.NoError(t, err)
		assert.Equal(t, want, and.Clauses[i], "clause %d", i)
	}
}

func TestFilters_DropsEmptyValues(t *testing.T) {
	got, err := Filters([]query.Filter{
		{Field: "a", Operator: query.Eq, Value: ""},
		{Field: "b", Operator: query.Eq, Value: 2},
		{Field: "c", Operator: query.In, Value: []any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, dsl.Equals{Field: "b", Value: 2}, got)

	none, err := Filters(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFilter_OperatorMapping(t *testing.T) {
	tests := []struct {
		f    query.Filter
		want string
	}{
		{query.Filter{Field: "a", Operator: query.Eq, Value: 1}, `{"equals":{"a":1}}`},
		{query.Filter{Field: "a", Operator: query.Ne, Value: 1}, `{"bool":{"must_not":[{"equals":{"a":1}}]}}`},
		{query.Filter{Field: "a", Operator: query.Gt, Value: 1}, `{"range":{"a":{"gt":1}}}`},
		{query.Filter{Field: "a", Operator: query.Lte, Value: 1}, `{"range":{"a":{"lte":1}}}`},
		{query.Filter{Field: "a", Operator: query.In, Value: []string{"x", "y"}}, `{"in":{"a":["x","y"]}}`},
		{query.Filter{Field: "a", Operator: query.In, Value: "x"}, `{"in":{"a":["x"]}}`},
		{query.Filter{Field: "title", Operator: query.Contains, Value: "red"}, `{"match":{"title":"red"}}`},
		{query.Filter{Field: "query_string", Operator: query.Contains, Value: "red"}, `{"match":{"*":"red"}}`},
	}
	for _, tc := range tests {
		t.Run(string(tc.f.Operator)+"/"+tc.f.Field, func(t *testing.T) {
			node, err := Filter(tc.f)
			require.NoError(t, err)
			data, err := json.Marshal(node)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

func TestFilter_UnknownOperator(t *testing.T) {
	_, err := Filter(query.Filter{Field: "a", Operator: "between", Value: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCompilation))

	var ce *domain.CompilationError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Reason, "between")
}

func TestFilter_ListForScalarOperator(t *testing.T) {
	_, err := Filter(query.Filter{Field: "a", Operator: query.Gte, Value: []any{1, 2}})
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestCompileList_Pagination(t *testing.T) {
	tests := []struct {
		page, size, offset int
	}{
		{1, 10, 0},
		{3, 10, 20},
		{2, 5, 5},
	}
	for _, tc := range tests {
		spec := listSpec()
		spec.Pagination = query.Pagination{Page: tc.page, PageSize: tc.size}
		body, err := ListRequest(spec)
		require.NoError(t, err)
		assert.Equal(t, tc.size, body.Limit)
		assert.Equal(t, tc.offset, body.Offset)
	}
}

func TestCompileList_RejectsInvalidPage(t *testing.T) {
	for _, p := range []query.Pagination{{Page: 0, PageSize: 10}, {Page: 1, PageSize: 0}} {
		spec := listSpec()
		spec.Pagination = p
		_, err := CompileList(spec)
		assert.ErrorIs(t, err, domain.ErrCompilation)
	}
}

func TestCompileList_RejectsOffsetOverflow(t *testing.T) {
	spec := listSpec()
	spec.Pagination = query.Pagination{Page: math.MaxInt/4 + 2, PageSize: 4}

	_, err := ListRequest(spec)
	assert.ErrorIs(t, err, domain.ErrCompilation)

	_, err = SQL(spec)
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestCompileList_EndToEndBody(t *testing.T) {
	spec := query.Spec{
		Resource:   "docs",
		Filters:    []query.Filter{{Field: "price", Operator: query.Gte, Value: 100}},
		Pagination: query.Pagination{Page: 2, PageSize: 5},
	}
	c, err := CompileList(spec)
	require.NoError(t, err)

	assert.Equal(t, request.SearchDSL, c.Transport())
	assert.Equal(t, request.PathSearch, c.Path())
	assert.JSONEq(t,
		`{"table":"docs","query":{"range":{"price":{"gte":100}}},"limit":5,"offset":5}`,
		string(c.Body()))
}

func TestCompileList_Sort(t *testing.T) {
	spec := listSpec()
	spec.Sorters = []query.Sorter{{Field: "price", Order: query.Desc}, {Field: "id", Order: "ASC"}}
	body, err := ListRequest(spec)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"price": "desc"}, {"id": "asc"}}, body.Sort)

	spec.Sorters = nil
	body, err = ListRequest(spec)
	require.NoError(t, err)
	assert.Nil(t, body.Sort)

	spec.Sorters = []query.Sorter{{Field: "price", Order: "sideways"}}
	_, err = ListRequest(spec)
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestCompileGet(t *testing.T) {
	c, err := CompileGet("docs", "42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"table":"docs","query":{"equals":{"id":42}},"limit":1}`, string(c.Body()))

	_, err = CompileGet("", 1)
	assert.ErrorIs(t, err, domain.ErrCompilation)
	_, err = CompileGet("docs", "")
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestCompileIDPrefixRange(t *testing.T) {
	id := "1234567890123456789"
	assert.True(t, NeedsIDFallback(id))
	assert.False(t, NeedsIDFallback("123"))
	assert.False(t, NeedsIDFallback("abcdefghijklmnopq"))

	c, err := CompileIDPrefixRange("docs", id)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"table":"docs","query":{"range":{"id":{"gte":1234567890123450000,"lte":1234567890123459999}}},"limit":5}`,
		string(c.Body()))

	_, err = CompileIDPrefixRange("docs", "12")
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestCompileCreate_HoistsID(t *testing.T) {
	doc := map[string]any{"id": "7", "title": "x"}
	c, err := CompileCreate("docs", doc)
	require.NoError(t, err)
	assert.Equal(t, request.PathInsert, c.Path())
	assert.JSONEq(t, `{"table":"docs","id":7,"doc":{"title":"x"}}`, string(c.Body()))
	assert.Contains(t, doc, "id", "caller payload must not be mutated")

	c, err = CompileCreate("docs", map[string]any{"title": "y"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"table":"docs","doc":{"title":"y"}}`, string(c.Body()))
}

func TestCompileUpdate_Verbatim(t *testing.T) {
	c, err := CompileUpdate("docs", 7, map[string]any{"title": "z", "tags": []any{"a"}})
	require.NoError(t, err)
	assert.Equal(t, request.PathUpdate, c.Path())
	assert.JSONEq(t, `{"table":"docs","id":7,"doc":{"title":"z","tags":["a"]}}`, string(c.Body()))

	_, err = CompileUpdate("docs", nil, nil)
	assert.ErrorIs(t, err, domain.ErrCompilation)
}

func TestCompileDelete(t *testing.T) {
	c, err := CompileDelete("docs", float64(9))
	require.NoError(t, err)
	assert.Equal(t, request.PathDelete, c.Path())
	assert.JSONEq(t, `{"table":"docs","id":9}`, string(c.Body()))

	_, err = CompileDelete("docs", 1.5)
	assert.ErrorIs(t, err, domain.ErrCompilation)
}
