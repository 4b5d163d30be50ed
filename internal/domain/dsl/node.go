// Package dsl models the backend's JSON search language as a closed set of nodes.
// Only the variants declared here can appear in a compiled query.
package dsl

import "encoding/json"

// Node is a query fragment. The unexported marker keeps the set closed.
type Node interface {
	json.Marshaler
	node()
}

// And requires every clause to match.
type And struct {
	Clauses []Node
}

// Or requires at least one clause to match.
type Or struct {
	Clauses []Node
}

// Not excludes documents matching the clause.
type Not struct {
	Clause Node
}

// Range bounds a numeric or string field. Keys are gt, gte, lt, lte.
type Range struct {
	Field  string
	Bounds map[string]any
}

// Equals matches a field value exactly.
type Equals struct {
	Field string
	Value any
}

// In matches any of the listed values.
type In struct {
	Field  string
	Values []any
}

// Match is a full-text match scoped to a field. An empty field matches across all fields.
type Match struct {
	Field string
	Text  string
}

// QueryString is a free-text query in the backend's extended syntax.
type QueryString struct {
	Query string
}

// MatchAll matches every document.
type MatchAll struct{}

func (And) node()         {}
func (Or) node()          {}
func (Not) node()         {}
func (Range) node()       {}
func (Equals) node()      {}
func (In) node()          {}
func (Match) node()       {}
func (QueryString) node() {}
func (MatchAll) node()    {}

// MarshalJSON encodes the conjunction as bool.must.
func (n And) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"bool": map[string]any{"must": nonNil(n.Clauses)}})
}

// MarshalJSON encodes the disjunction as bool.should.
func (n Or) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"bool": map[string]any{"should": nonNil(n.Clauses)}})
}

// MarshalJSON encodes the negation as bool.must_not.
func (n Not) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"bool": map[string]any{"must_not": []Node{n.Clause}}})
}

// MarshalJSON encodes {"range":{field:{op:value}}}.
func (n Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"range": map[string]any{n.Field: n.Bounds}})
}

// MarshalJSON encodes {"equals":{field:value}}.
func (n Equals) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"equals": map[string]any{n.Field: n.Value}})
}

// MarshalJSON encodes {"in":{field:[values]}}.
func (n In) MarshalJSON() ([]byte, error) {
	values := n.Values
	if values == nil {
		values = []any{}
	}
	return json.Marshal(map[string]any{"in": map[string]any{n.Field: values}})
}

// MarshalJSON encodes {"match":{field:text}}, using "*" for an unscoped match.
func (n Match) MarshalJSON() ([]byte, error) {
	field := n.Field
	if field == "" {
		field = "*"
	}
	return json.Marshal(map[string]any{"match": map[string]any{field: n.Text}})
}

// MarshalJSON encodes {"query_string":query}.
func (n QueryString) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"query_string": n.Query})
}

// MarshalJSON encodes {"match_all":{}}.
func (MatchAll) MarshalJSON() ([]byte, error) {
	return []byte(`{"match_all":{}}`), nil
}

// Conjoin merges fragments with AND semantics. Nil fragments are skipped,
// a single fragment is returned as is and no fragments yield nil.
func Conjoin(nodes ...Node) Node {
	kept := nonNil(nodes)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Clauses: kept}
	}
}

// Disjoin merges fragments with OR semantics, flattening the single-fragment case.
func Disjoin(nodes ...Node) Node {
	kept := nonNil(nodes)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return Or{Clauses: kept}
	}
}

func nonNil(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
