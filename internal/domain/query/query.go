package query

import (
	"fmt"
	"math"
	"reflect"
)

// QueryStringField is the sentinel field name meaning "match across all fields".
const QueryStringField = "query_string"

// Operator is a filter comparison operator.
type Operator string

// Supported filter operators.
const (
	Eq       Operator = "eq"
	Ne       Operator = "ne"
	Gt       Operator = "gt"
	Gte      Operator = "gte"
	Lt       Operator = "lt"
	Lte      Operator = "lte"
	In       Operator = "in"
	Contains Operator = "contains"
)

// IsRange reports whether the operator is a numeric bound.
func (o Operator) IsRange() bool {
	return o == Gt || o == Gte || o == Lt || o == Lte
}

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// IsValid checks if the order is asc or desc.
func (o Order) IsValid() bool {
	return o == Asc || o == Desc
}

// Filter is a single field predicate.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// IsEmpty reports whether the filter carries no usable value.
// Empty filters are dropped before compilation.
func (f Filter) IsEmpty() bool {
	if f.Value == nil {
		return true
	}
	if s, ok := f.Value.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(f.Value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len() == 0
	}
	return false
}

// Sorter orders results by a field.
type Sorter struct {
	Field string `json:"field"`
	Order Order  `json:"order"`
}

// Pagination is a 1-based page window.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Validate rejects windows that would produce a negative offset or an empty page.
func (p Pagination) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", p.Page)
	}
	if p.PageSize < 1 {
		return fmt.Errorf("page size must be >= 1, got %d", p.PageSize)
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return fmt.Errorf("page %d with page size %d overflows the offset", p.Page, p.PageSize)
	}
	return nil
}

// Limit returns the number of rows per page.
func (p Pagination) Limit() int { return p.PageSize }

// Offset returns the number of rows skipped before the page.
func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

// Spec is an abstract list request against one table.
type Spec struct {
	Resource   string     `json:"resource"`
	Pagination Pagination `json:"pagination"`
	Sorters    []Sorter   `json:"sorters,omitempty"`
	Filters    []Filter   `json:"filters,omitempty"`
}

// EffectiveFilters returns filters that carry a value, in order.
func (s Spec) EffectiveFilters() []Filter {
	out := make([]Filter, 0, len(s.Filters))
	for _, f := range s.Filters {
		if !f.IsEmpty() {
			out = append(out, f)
		}
	}
	return out
}
