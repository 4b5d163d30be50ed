package vectormeta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// settingsRow is one row of the settings table.
type settingsRow struct {
	ID        string
	Table     string
	Column    string
	Model     string
	Combined  *vector.CombinedFields
	CreatedAt int64
	UpdatedAt int64
}

func rowFromRecord(rec result.Record) (settingsRow, error) {
	id := fmt.Sprint(rec["id"])
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return settingsRow{}, fmt.Errorf("invalid id %q", id)
	}
	col := str(rec["col_name"])
	if col == "" {
		return settingsRow{}, fmt.Errorf("row %s has no column name", id)
	}
	combined, err := vector.ParseCombinedFields(rec["combined_fields"])
	if err != nil {
		return settingsRow{}, err
	}
	return settingsRow{
		ID:        id,
		Table:     str(rec["tbl_name"]),
		Column:    col,
		Model:     str(rec["mdl_name"]),
		Combined:  combined,
		CreatedAt: integer(rec["created_at"]),
		UpdatedAt: integer(rec["updated_at"]),
	}, nil
}

// latestPerColumn keeps the most recently updated row per column, in first-seen order.
func latestPerColumn(rows []settingsRow) []vector.ColumnConfig {
	pos := make(map[string]int, len(rows))
	latest := make([]settingsRow, 0, len(rows))
	for _, row := range rows {
		i, seen := pos[row.Column]
		if !seen {
			pos[row.Column] = len(latest)
			latest = append(latest, row)
			continue
		}
		if row.UpdatedAt > latest[i].UpdatedAt {
			latest[i] = row
		}
	}

	out := make([]vector.ColumnConfig, len(latest))
	for i, row := range latest {
		out[i] = vector.ColumnConfig{
			Table:          row.Table,
			Column:         row.Column,
			ModelName:      row.Model,
			CombinedFields: row.Combined,
		}
	}
	return out
}

type vectorAttrs struct {
	KNNType    string
	Similarity string
	Dims       int
}

var (
	floatVectorRe = regexp.MustCompile("(?i)`?([A-Za-z_][A-Za-z0-9_]*)`?\\s+float_vector((?:\\s+[a-z_]+\\s*=\\s*'[^']*')*)")
	attrRe        = regexp.MustCompile(`(?i)([a-z_]+)\s*=\s*'([^']*)'`)
)

// parseVectorAttrs extracts knn_type, knn_dims and hnsw_similarity of every
// float_vector column in a CREATE TABLE statement.
func parseVectorAttrs(stmt string) map[string]vectorAttrs {
	out := make(map[string]vectorAttrs)
	for _, m := range floatVectorRe.FindAllStringSubmatch(stmt, -1) {
		var a vectorAttrs
		for _, kv := range attrRe.FindAllStringSubmatch(m[2], -1) {
			switch strings.ToLower(kv[1]) {
			case "knn_type":
				a.KNNType = strings.ToLower(kv[2])
			case "knn_dims":
				a.Dims, _ = strconv.Atoi(kv[2])
			case "hnsw_similarity":
				a.Similarity = strings.ToLower(kv[2])
			}
		}
		out[m[1]] = a
	}
	return out
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func integer(v any) int64 {
	n, _ := strconv.ParseInt(str(v), 10, 64)
	return n
}
