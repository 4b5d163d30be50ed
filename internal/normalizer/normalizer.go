// Package normalizer converts backend responses into one records/total shape.
package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
)

// Normalizer maps raw response bodies to result.Normalized.
// A body that does not fit the expected shape yields an empty result and a warning.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a Normalizer. A nil logger disables mismatch logging.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

type hit struct {
	ID      any            `json:"_id"`
	Score   any            `json:"_score"`
	Source  map[string]any `json:"_source"`
	KNNDist any            `json:"_knn_dist"`
}

type hitsBody struct {
	Hits *struct {
		Total *int  `json:"total"`
		Hits  []hit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key      any `json:"key"`
			DocCount int `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
	Error json.RawMessage `json:"error"`
}

type resultSet struct {
	Columns []map[string]any `json:"columns"`
	Data    []map[string]any `json:"data"`
	Total   *int             `json:"total"`
	Error   string           `json:"error"`
	Warning string           `json:"warning"`
}

// Normalize decodes raw according to shape.
// Backend error payloads return a *domain.TransportError; anything else that does
// not decode yields an empty result.
func (n *Normalizer) Normalize(raw []byte, shape result.Shape) (result.Normalized, error) {
	switch shape {
	case result.Hits:
		return n.hits(raw)
	case result.Tabular:
		return n.tabular(raw, false)
	case result.Admin:
		return n.tabular(raw, true)
	default:
		n.mismatch(shape, "unknown shape", raw)
		return result.Empty(), nil
	}
}

func (n *Normalizer) hits(raw []byte) (result.Normalized, error) {
	var body hitsBody
	if err := decode(raw, &body); err != nil {
		n.mismatch(result.Hits, err.Error(), raw)
		return result.Empty(), nil
	}
	if msg := ErrorMessage(body.Error); msg != "" {
		return result.Normalized{}, domain.NewTransportError(0, msg)
	}
	if body.Hits == nil {
		n.mismatch(result.Hits, "missing hits", raw)
		return result.Empty(), nil
	}

	out := result.Normalized{Records: make([]result.Record, 0, len(body.Hits.Hits))}
	for _, h := range body.Hits.Hits {
		// _source is hoisted one level. JSON attributes inside it stay structured.
		rec := make(result.Record, len(h.Source)+3)
		for k, v := range h.Source {
			rec[k] = v
		}
		if h.ID != nil {
			rec["id"] = h.ID
		}
		if h.Score != nil {
			rec["_score"] = h.Score
		}
		if h.KNNDist != nil {
			rec["_knn_dist"] = h.KNNDist
		}
		out.Records = append(out.Records, rec)
	}

	out.Total = len(out.Records)
	if body.Hits.Total != nil {
		out.Total = *body.Hits.Total
	}

	if len(body.Aggregations) > 0 {
		out.Facets = make(map[string][]result.FacetBucket, len(body.Aggregations))
		for name, agg := range body.Aggregations {
			buckets := make([]result.FacetBucket, len(agg.Buckets))
			for i, b := range agg.Buckets {
				buckets[i] = result.FacetBucket{Key: b.Key, Count: b.DocCount}
			}
			out.Facets[name] = buckets
		}
	}
	return out, nil
}

func (n *Normalizer) tabular(raw []byte, admin bool) (result.Normalized, error) {
	shape := result.Tabular
	if admin {
		shape = result.Admin
	}

	sets, err := resultSets(raw)
	if err != nil {
		n.mismatch(shape, err.Error(), raw)
		return result.Empty(), nil
	}

	out := result.Empty()
	for _, s := range sets {
		if s.Error != "" {
			return result.Normalized{}, domain.NewTransportError(0, s.Error)
		}
		if s.Warning != "" {
			n.logger.Warn("Backend warning", zap.String("warning", s.Warning))
		}
		for _, row := range s.Data {
			if admin {
				row = lowerKeys(row)
			}
			out.Records = append(out.Records, row)
		}
		if s.Total != nil {
			out.Total += *s.Total
		} else {
			out.Total += len(s.Data)
		}
	}
	return out, nil
}

// resultSets accepts an array of result sets or a lone set object.
func resultSets(raw []byte) ([]resultSet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if trimmed[0] == '{' {
		var one resultSet
		if err := decode(trimmed, &one); err != nil {
			return nil, err
		}
		if one.Data == nil && one.Columns == nil && one.Error == "" {
			return nil, fmt.Errorf("missing data")
		}
		return []resultSet{one}, nil
	}
	var many []resultSet
	if err := decode(trimmed, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func lowerKeys(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[strings.ToLower(k)] = v
	}
	return out
}

func decode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// ErrorMessage extracts the message of a backend error value, which is either
// a string or an object with a reason or type. It returns "" for null or empty input.
func ErrorMessage(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	var obj struct {
		Reason string `json:"reason"`
		Type   string `json:"type"`
	}
	if json.Unmarshal(trimmed, &obj) == nil {
		if obj.Reason != "" {
			return obj.Reason
		}
		return obj.Type
	}
	return string(trimmed)
}

func (n *Normalizer) mismatch(shape result.Shape, reason string, raw []byte) {
	const maxLogged = 512
	body := raw
	if len(body) > maxLogged {
		body = body[:maxLogged]
	}
	n.logger.Warn("Response shape mismatch",
		zap.String("shape", string(shape)),
		zap.String("reason", reason),
		zap.ByteString("body", body),
		zap.Error(domain.ErrShapeMismatch),
	)
}

type mutationBody struct {
	Table   string          `json:"table"`
	ID      any             `json:"_id"`
	Created *bool           `json:"created"`
	Found   *bool           `json:"found"`
	Result  string          `json:"result"`
	Updated *int            `json:"updated"`
	Deleted *int            `json:"deleted"`
	Status  int             `json:"status"`
	Error   json.RawMessage `json:"error"`
}

// Mutation decodes an /insert, /update or /delete response.
// "not found" results report zero affected records.
func (n *Normalizer) Mutation(raw []byte) (result.Mutation, error) {
	var body mutationBody
	if err := decode(raw, &body); err != nil {
		n.mismatch("mutation", err.Error(), raw)
		return result.Mutation{}, nil
	}
	if msg := ErrorMessage(body.Error); msg != "" {
		return result.Mutation{}, domain.NewTransportError(body.Status, msg)
	}

	m := result.Mutation{Table: body.Table, ID: body.ID, Result: body.Result}
	switch {
	case body.Updated != nil:
		m.Affected = *body.Updated
	case body.Deleted != nil:
		m.Affected = *body.Deleted
	case body.Found != nil && !*body.Found:
		m.Affected = 0
	case body.Result == "created", body.Result == "updated", body.Result == "deleted":
		m.Affected = 1
	}
	if body.Created != nil {
		m.Created = *body.Created
	}
	if m.Result == "" {
		switch {
		case m.Created:
			m.Result = "created"
		case m.Affected > 0:
			m.Result = "updated"
		}
	}
	return m, nil
}
