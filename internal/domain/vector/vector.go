package vector

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SettingsTable stores per-column embedding settings in the backend.
const SettingsTable = "manager_vector_column_settings"

// CombinedFields describes source fields whose embeddings are merged into one vector.
type CombinedFields struct {
	SourceFields  []string           `json:"source_fields"`
	Weights       map[string]float64 `json:"weights,omitempty"`
	CombineMethod string             `json:"combine_method,omitempty"`
}

// Weight returns the configured weight of a field, defaulting to 1.
func (c CombinedFields) Weight(field string) float64 {
	if w, ok := c.Weights[field]; ok {
		return w
	}
	return 1
}

// ParseCombinedFields decodes the settings column, which the backend returns
// either as an embedded object or as a JSON-encoded string.
// Empty input yields nil without error.
func ParseCombinedFields(raw any) (*CombinedFields, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" || v == "null" {
			return nil, nil
		}
		data = []byte(v)
	case json.RawMessage:
		if len(v) == 0 || string(v) == "null" {
			return nil, nil
		}
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal combined fields: %w", err)
		}
		data = b
	}

	// Fields saved as {"fields": {name: weight}} by older tooling are accepted too.
	var wire struct {
		SourceFields  []string           `json:"source_fields"`
		Weights       map[string]float64 `json:"weights"`
		Fields        map[string]float64 `json:"fields"`
		CombineMethod string             `json:"combine_method"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse combined fields: %w", err)
	}

	cf := &CombinedFields{
		SourceFields:  wire.SourceFields,
		Weights:       wire.Weights,
		CombineMethod: wire.CombineMethod,
	}
	if len(cf.SourceFields) == 0 && len(wire.Fields) > 0 {
		names := make([]string, 0, len(wire.Fields))
		for name := range wire.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		cf.SourceFields = names
		cf.Weights = wire.Fields
	}
	if len(cf.SourceFields) == 0 {
		return nil, nil
	}
	return cf, nil
}

// ColumnConfig is the embedding configuration of one vector column.
// Identity is (Table, Column).
type ColumnConfig struct {
	Table            string          `json:"table"`
	Column           string          `json:"column"`
	ModelName        string          `json:"model_name"`
	KNNType          string          `json:"knn_type,omitempty"`
	SimilarityMetric string          `json:"similarity_metric,omitempty"`
	Dimensions       int             `json:"dimensions,omitempty"`
	CombinedFields   *CombinedFields `json:"combined_fields,omitempty"`
}

// IsMultiField reports whether the column synthesizes its vector from several fields.
func (c ColumnConfig) IsMultiField() bool {
	return c.CombinedFields != nil && len(c.CombinedFields.SourceFields) > 0
}

// FuzzyOptions controls the wildcard rewrite of free-text queries.
type FuzzyOptions struct {
	Enabled          bool     `json:"enabled"`
	PreserveOriginal bool     `json:"preserve_original,omitempty"`
	Distance         int      `json:"distance,omitempty"`
	Layouts          []string `json:"layouts,omitempty"`
}

// Facet requests a terms aggregation on a field.
type Facet struct {
	Field string `json:"field"`
	Size  int    `json:"size,omitempty"`
	Order string `json:"order,omitempty"`
}

// SearchSpec is a vector similarity request.
// Vector dimensionality is checked by the backend, not here.
type SearchSpec struct {
	Field       string        `json:"field"`
	Vector      []float32     `json:"vector"`
	K           int           `json:"k"`
	EF          *int          `json:"ef,omitempty"`
	HybridQuery string        `json:"hybrid_query,omitempty"`
	Fuzzy       *FuzzyOptions `json:"fuzzy,omitempty"`
}
