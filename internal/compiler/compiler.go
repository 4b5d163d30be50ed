// Package compiler turns abstract record operations into backend requests.
package compiler

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/dsl"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
)

// IDField is the document identifier attribute.
const IDField = "id"

// Ids longer than this lose precision when they pass through float64 clients.
const safeIDDigits = 15

// idFallbackLimit caps the rows returned by an id prefix range lookup.
const idFallbackLimit = 5

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Filter compiles one filter through the operator table.
func Filter(f query.Filter) (dsl.Node, error) {
	rule, err := lookup(f.Operator)
	if err != nil {
		return nil, err
	}
	node, err := rule.dsl(f.Field, f.Value)
	if err != nil {
		return nil, domain.NewCompilationError("filter", "%s %s: %v", f.Field, f.Operator, err)
	}
	return node, nil
}

// Filters compiles a filter list. Empty filters are dropped; one filter is returned
// unwrapped, several are AND-combined in order. No filters yield nil.
func Filters(filters []query.Filter) (dsl.Node, error) {
	nodes := make([]dsl.Node, 0, len(filters))
	for _, f := range filters {
		if f.IsEmpty() {
			continue
		}
		n, err := Filter(f)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return dsl.Conjoin(nodes...), nil
}

// Sort compiles sorters to ordered {field: direction} pairs. No sorters yield nil.
func Sort(sorters []query.Sorter) ([]map[string]string, error) {
	if len(sorters) == 0 {
		return nil, nil
	}
	out := make([]map[string]string, 0, len(sorters))
	for _, s := range sorters {
		if s.Field == "" {
			return nil, domain.NewCompilationError("sort", "field is required")
		}
		order := s.Order
		if order == "" {
			order = query.Asc
		}
		order = query.Order(strings.ToLower(string(order)))
		if !order.IsValid() {
			return nil, domain.NewCompilationError("sort", "invalid order %q for %s", s.Order, s.Field)
		}
		out = append(out, map[string]string{s.Field: string(order)})
	}
	return out, nil
}

// ListRequest builds the search body of a list operation without encoding it.
func ListRequest(spec query.Spec) (dsl.SearchRequest, error) {
	if spec.Resource == "" {
		return dsl.SearchRequest{}, domain.NewCompilationError("list", "resource is required")
	}
	if err := spec.Pagination.Validate(); err != nil {
		return dsl.SearchRequest{}, domain.NewCompilationError("list", "%v", err)
	}

	q, err := Filters(spec.Filters)
	if err != nil {
		return dsl.SearchRequest{}, err
	}
	sort, err := Sort(spec.Sorters)
	if err != nil {
		return dsl.SearchRequest{}, err
	}

	return dsl.SearchRequest{
		Table:  spec.Resource,
		Query:  q,
		Sort:   sort,
		Limit:  spec.Pagination.Limit(),
		Offset: spec.Pagination.Offset(),
	}, nil
}

// CompileList compiles a list operation to POST /search.
func CompileList(spec query.Spec) (request.Compiled, error) {
	body, err := ListRequest(spec)
	if err != nil {
		return request.Compiled{}, err
	}
	return encode(request.PathSearch, body, result.Hits)
}

// CompileGet compiles a single-record lookup by id.
func CompileGet(table string, id any) (request.Compiled, error) {
	if err := requireTable("get", table); err != nil {
		return request.Compiled{}, err
	}
	docID, err := normalizeID("get", id)
	if err != nil {
		return request.Compiled{}, err
	}
	return encode(request.PathSearch, dsl.SearchRequest{
		Table: table,
		Query: dsl.Equals{Field: IDField, Value: docID},
		Limit: 1,
	}, result.Hits)
}

// NeedsIDFallback reports whether an id is long enough to have lost precision
// on its way through a float64 JSON client.
func NeedsIDFallback(id string) bool {
	return len(id) > safeIDDigits && isDigits(id)
}

// CompileIDPrefixRange compiles a range lookup over ids sharing the first
// significant digits of id. Callers use it when an exact lookup missed.
func CompileIDPrefixRange(table, id string) (request.Compiled, error) {
	if err := requireTable("get", table); err != nil {
		return request.Compiled{}, err
	}
	if !NeedsIDFallback(id) {
		return request.Compiled{}, domain.NewCompilationError("get", "id %q does not need a prefix lookup", id)
	}
	prefix := id[:safeIDDigits]
	rest := len(id) - safeIDDigits
	lo := json.Number(prefix + strings.Repeat("0", rest))
	hi := json.Number(prefix + strings.Repeat("9", rest))

	return encode(request.PathSearch, dsl.SearchRequest{
		Table: table,
		Query: dsl.Range{Field: IDField, Bounds: map[string]any{"gte": lo, "lte": hi}},
		Limit: idFallbackLimit,
	}, result.Hits)
}

// CompileCreate compiles an insert. An id in the payload moves to the request and
// is removed from the document.
func CompileCreate(table string, doc map[string]any) (request.Compiled, error) {
	if err := requireTable("create", table); err != nil {
		return request.Compiled{}, err
	}
	body := dsl.InsertRequest{Table: table, Doc: make(map[string]any, len(doc))}
	for k, v := range doc {
		if k == IDField {
			continue
		}
		body.Doc[k] = v
	}
	if raw, ok := doc[IDField]; ok && raw != nil && raw != "" {
		id, err := normalizeID("create", raw)
		if err != nil {
			return request.Compiled{}, err
		}
		body.ID = id
	}
	return encode(request.PathInsert, body, result.Hits)
}

// CompileUpdate compiles a partial update. The document is sent verbatim.
func CompileUpdate(table string, id any, doc map[string]any) (request.Compiled, error) {
	if err := requireTable("update", table); err != nil {
		return request.Compiled{}, err
	}
	docID, err := normalizeID("update", id)
	if err != nil {
		return request.Compiled{}, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return encode(request.PathUpdate, dsl.UpdateRequest{Table: table, ID: docID, Doc: doc}, result.Hits)
}

// CompileDelete compiles a delete by id.
func CompileDelete(table string, id any) (request.Compiled, error) {
	if err := requireTable("delete", table); err != nil {
		return request.Compiled{}, err
	}
	docID, err := normalizeID("delete", id)
	if err != nil {
		return request.Compiled{}, err
	}
	return encode(request.PathDelete, dsl.DeleteRequest{Table: table, ID: docID}, result.Hits)
}

func encode(path string, body any, shape result.Shape) (request.Compiled, error) {
	c, err := request.NewJSON(path, body, shape)
	if err != nil {
		return request.Compiled{}, domain.NewCompilationError(strings.TrimPrefix(path, "/"), "%v", err)
	}
	return c, nil
}

func requireTable(op, table string) error {
	if table == "" {
		return domain.NewCompilationError(op, "table is required")
	}
	return nil
}

// normalizeID turns numeric strings into JSON numbers so long ids keep every digit.
func normalizeID(op string, id any) (any, error) {
	switch v := id.(type) {
	case nil:
		return nil, domain.NewCompilationError(op, "id is required")
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, domain.NewCompilationError(op, "id is required")
		}
		if isDigits(s) {
			return json.Number(s), nil
		}
		return s, nil
	case float64:
		if v != float64(int64(v)) {
			return nil, domain.NewCompilationError(op, "id must be an integer, got %v", v)
		}
		return json.Number(fmt.Sprintf("%d", int64(v))), nil
	default:
		return v, nil
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
