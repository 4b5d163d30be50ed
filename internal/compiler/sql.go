package compiler

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
)

// SQL renders a list operation as a single-line SELECT statement.
// All contains filters are folded into one MATCH clause placed where the first
// of them appeared.
func SQL(spec query.Spec) (string, error) {
	if err := identifier("list", spec.Resource); err != nil {
		return "", err
	}
	if err := spec.Pagination.Validate(); err != nil {
		return "", domain.NewCompilationError("list", "%v", err)
	}

	var (
		where    []string
		matches  []string
		matchPos = -1
	)
	for _, f := range spec.EffectiveFilters() {
		rule, err := lookup(f.Operator)
		if err != nil {
			return "", err
		}
		if f.Operator == query.Contains {
			if f.Field != query.QueryStringField {
				if err := identifier("filter", f.Field); err != nil {
					return "", err
				}
			}
			if matchPos < 0 {
				matchPos = len(where)
				where = append(where, "")
			}
			matches = append(matches, matchTerm(f))
			continue
		}
		if err := identifier("filter", f.Field); err != nil {
			return "", err
		}
		cond, err := rule.sql(f.Field, f.Value)
		if err != nil {
			return "", domain.NewCompilationError("filter", "%s %s: %v", f.Field, f.Operator, err)
		}
		where = append(where, cond)
	}
	if matchPos >= 0 {
		where[matchPos] = "MATCH('" + sqlEscaper.Replace(strings.Join(matches, " ")) + "')"
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(spec.Resource)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	if len(spec.Sorters) > 0 {
		sorts, err := Sort(spec.Sorters)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(sorts))
		for i, s := range sorts {
			field := spec.Sorters[i].Field
			if err := identifier("sort", field); err != nil {
				return "", err
			}
			parts = append(parts, field+" "+strings.ToUpper(s[field]))
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(spec.Pagination.Offset()))
	b.WriteString(", ")
	b.WriteString(strconv.Itoa(spec.Pagination.Limit()))
	return b.String(), nil
}

// CompileSQL compiles a list operation to the SQL text transport.
func CompileSQL(spec query.Spec) (request.Compiled, error) {
	stmt, err := SQL(spec)
	if err != nil {
		return request.Compiled{}, err
	}
	return request.NewSQL(stmt, false), nil
}

// matchEscaper backslash-escapes full-text operators so a value is matched as plain text.
var matchEscaper = strings.NewReplacer(
	`\`, `\\`, `@`, `\@`, `|`, `\|`, `-`, `\-`, `!`, `\!`, `"`, `\"`,
	`(`, `\(`, `)`, `\)`, `~`, `\~`, `/`, `\/`, `^`, `\^`, `$`, `\$`,
	`<`, `\<`, `=`, `\=`,
)

// matchTerm renders one contains filter as a MATCH fragment. The query_string
// pseudo-field passes full-text syntax through; field values are escaped.
func matchTerm(f query.Filter) string {
	q := text(f.Value)
	if f.Field == query.QueryStringField {
		return q
	}
	return "@" + f.Field + " " + matchEscaper.Replace(q)
}

func identifier(op, name string) error {
	if !identifierRe.MatchString(name) {
		return domain.NewCompilationError(op, "invalid identifier %q", name)
	}
	return nil
}

// ValidIdentifier reports whether name is safe to splice into a statement as a table or column name.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}
