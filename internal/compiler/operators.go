package compiler

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/dsl"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
)

// operatorRule describes how one filter operator renders in each backend dialect.
type operatorRule struct {
	dsl func(field string, value any) (dsl.Node, error)
	sql func(field string, value any) (string, error)
}

// operators is the mapping table. Operators missing here fail compilation.
var operators = map[query.Operator]operatorRule{
	query.Eq: {
		dsl: func(field string, value any) (dsl.Node, error) {
			v, err := scalar(value)
			if err != nil {
				return nil, err
			}
			return dsl.Equals{Field: field, Value: v}, nil
		},
		sql: comparison("="),
	},
	query.Ne: {
		dsl: func(field string, value any) (dsl.Node, error) {
			v, err := scalar(value)
			if err != nil {
				return nil, err
			}
			return dsl.Not{Clause: dsl.Equals{Field: field, Value: v}}, nil
		},
		sql: comparison("!="),
	},
	query.Gt:  {dsl: bound("gt"), sql: comparison(">")},
	query.Gte: {dsl: bound("gte"), sql: comparison(">=")},
	query.Lt:  {dsl: bound("lt"), sql: comparison("<")},
	query.Lte: {dsl: bound("lte"), sql: comparison("<=")},
	query.In: {
		dsl: func(field string, value any) (dsl.Node, error) {
			return dsl.In{Field: field, Values: list(value)}, nil
		},
		sql: func(field string, value any) (string, error) {
			values := list(value)
			parts := make([]string, len(values))
			for i, v := range values {
				lit, err := sqlLiteral(v)
				if err != nil {
					return "", err
				}
				parts[i] = lit
			}
			return fmt.Sprintf("%s IN (%s)", field, strings.Join(parts, ", ")), nil
		},
	},
	query.Contains: {
		dsl: func(field string, value any) (dsl.Node, error) {
			q := text(value)
			if field == query.QueryStringField {
				return dsl.Match{Text: q}, nil
			}
			return dsl.Match{Field: field, Text: q}, nil
		},
		// contains filters are folded into a single MATCH by the SQL compiler.
		sql: nil,
	},
}

func lookup(op query.Operator) (operatorRule, error) {
	rule, ok := operators[op]
	if !ok {
		return operatorRule{}, domain.NewCompilationError("filter", "unsupported operator %q", op)
	}
	return rule, nil
}

func bound(key string) func(string, any) (dsl.Node, error) {
	return func(field string, value any) (dsl.Node, error) {
		v, err := scalar(value)
		if err != nil {
			return nil, err
		}
		return dsl.Range{Field: field, Bounds: map[string]any{key: v}}, nil
	}
}

func comparison(op string) func(string, any) (string, error) {
	return func(field string, value any) (string, error) {
		v, err := scalar(value)
		if err != nil {
			return "", err
		}
		lit, err := sqlLiteral(v)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", field, op, lit), nil
	}
}

// scalar rejects list and object values for single-value operators.
func scalar(value any) (any, error) {
	switch reflect.ValueOf(value).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return nil, fmt.Errorf("expected a single value, got %T", value)
	default:
		return value, nil
	}
}

// list widens a value to a slice; scalars become one-element lists.
func list(value any) []any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func text(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

var sqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// sqlLiteral renders a value as a SQL literal. Strings are quoted and escaped.
func sqlLiteral(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return "'" + sqlEscaper.Replace(v) + "'", nil
	case json.Number:
		return v.String(), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32, float64:
		return fmt.Sprintf("%v", v), nil
	default:
		return "", fmt.Errorf("unsupported SQL value type %T", value)
	}
}

// Quote renders s as a single-quoted SQL string literal.
func Quote(s string) string {
	return "'" + sqlEscaper.Replace(s) + "'"
}

// Literal renders a scalar as a SQL literal for hand-built statements.
func Literal(value any) (string, error) {
	return sqlLiteral(value)
}
