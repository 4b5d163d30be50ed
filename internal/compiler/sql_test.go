package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
)

func TestSQL_Basic(t *testing.T) {
	stmt, err := SQL(listSpec())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM docs LIMIT 0, 10", stmt)
}

func TestSQL_FiltersSortAndPage(t *testing.T) {
	spec := query.Spec{
		Resource: "docs",
		Filters: []query.Filter{
			{Field: "brand", Operator: query.Eq, Value: "o'neil"},
			{Field: "price", Operator: query.Gte, Value: 10.5},
			{Field: "cat", Operator: query.In, Value: []any{1, 2}},
			{Field: "active", Operator: query.Ne, Value: false},
		},
		Sorters:    []query.Sorter{{Field: "price", Order: query.Desc}},
		Pagination: query.Pagination{Page: 3, PageSize: 20},
	}
	stmt, err := SQL(spec)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM docs WHERE brand = 'o\'neil' AND price >= 10.5 AND cat IN (1, 2) AND active != 0 `+
			`ORDER BY price DESC LIMIT 40, 20`,
		stmt)
}

func TestSQL_FoldsContainsIntoOneMatch(t *testing.T) {
	spec := listSpec(
		query.Filter{Field: "price", Operator: query.Lt, Value: 5},
		query.Filter{Field: "title", Operator: query.Contains, Value: "red"},
		query.Filter{Field: "query_string", Operator: query.Contains, Value: "shoe"},
	)
	stmt, err := SQL(spec)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM docs WHERE price < 5 AND MATCH('@title red shoe') LIMIT 0, 10", stmt)
}

func TestSQL_EscapesFullTextOperatorsInFieldValues(t *testing.T) {
	stmt, err := SQL(listSpec(
		query.Filter{Field: "description", Operator: query.Contains, Value: "@title x"},
	))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM docs WHERE MATCH('@description \\@title x') LIMIT 0, 10`, stmt)

	stmt, err = SQL(listSpec(
		query.Filter{Field: "title", Operator: query.Contains, Value: `a|b -c "d" it's`},
	))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM docs WHERE MATCH('@title a\\|b \\-c \\"d\\" it\'s') LIMIT 0, 10`, stmt)
}

func TestSQL_QueryStringKeepsFullTextSyntax(t *testing.T) {
	stmt, err := SQL(listSpec(
		query.Filter{Field: "query_string", Operator: query.Contains, Value: "@title red | blue"},
	))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM docs WHERE MATCH('@title red | blue') LIMIT 0, 10", stmt)
}

func TestSQL_RejectsBadInput(t *testing.T) {
	cases := map[string]query.Spec{
		"table":      {Resource: "docs; DROP TABLE x", Pagination: query.Pagination{Page: 1, PageSize: 1}},
		"field":      listSpec(query.Filter{Field: "a b", Operator: query.Eq, Value: 1}),
		"operator":   listSpec(query.Filter{Field: "a", Operator: "like", Value: 1}),
		"value type": listSpec(query.Filter{Field: "a", Operator: query.Eq, Value: struct{}{}}),
		"page":       {Resource: "docs", Pagination: query.Pagination{Page: 0, PageSize: 1}},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := SQL(spec)
			assert.ErrorIs(t, err, domain.ErrCompilation)
		})
	}
}

func TestCompileSQL_Transport(t *testing.T) {
	c, err := CompileSQL(listSpec())
	require.NoError(t, err)
	assert.Equal(t, request.SQLText, c.Transport())
	assert.Equal(t, request.PlainText, c.ContentKind())
	assert.Equal(t, "/sql", c.URL())
}

func TestQuoteAndLiteral(t *testing.T) {
	assert.Equal(t, `'it\'s a \\ test'`, Quote(`it's a \ test`))

	lit, err := Literal(42)
	require.NoError(t, err)
	assert.Equal(t, "42", lit)

	_, err = Literal(map[string]any{})
	assert.Error(t, err)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("products_v2"))
	assert.False(t, ValidIdentifier("docs; DROP TABLE x"))
	assert.False(t, ValidIdentifier(""))
}
