// Package recommend finds records similar to a reference record, vector or text.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/composer"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// Service answers recommendation requests in two stages: resolve the reference
// vector, then run a KNN search around it.
type Service struct {
	backend  Backend
	norm     Normalizer
	cols     VectorColumns
	records  RecordReader
	embedder Embedder
	composer *composer.Composer
	logger   *zap.Logger
}

// New creates a recommendation service. embedder may be nil, which rejects text input.
func New(
	b Backend, n Normalizer, cols VectorColumns, records RecordReader,
	embedder Embedder, c *composer.Composer, logger *zap.Logger,
) *Service {
	if c == nil {
		c = composer.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:  b,
		norm:     n,
		cols:     cols,
		records:  records,
		embedder: embedder,
		composer: c,
		logger:   logger,
	}
}

type reference struct {
	vector []float32
	column vector.ColumnConfig
	// docID is the id of the reference record as stored, for id input.
	docID any
}

// Recommend returns records nearest to the reference of req.
func (s *Service) Recommend(ctx context.Context, req Request) (Response, error) {
	if err := normalize(&req); err != nil {
		return Response{}, err
	}
	start := time.Now()

	ref, err := s.reference(ctx, req)
	if err != nil {
		return Response{}, err
	}
	refDone := time.Now()

	items, err := s.similar(ctx, req, ref)
	if err != nil {
		return Response{}, err
	}
	end := time.Now()

	resp := Response{
		ReferenceTable:      req.Table,
		ReferenceInputType:  req.InputType,
		ReferenceInputValue: req.InputValue,
		VectorColumnUsed:    ref.column.Column,
		ModelName:           ref.column.ModelName,
		Recommendations:     items,
		TotalFound:          len(items),
		QueryTimeMS:         ms(end.Sub(start)),
		ReferenceTimeMS:     ms(refDone.Sub(start)),
		SearchTimeMS:        ms(end.Sub(refDone)),
	}
	if len(ref.vector) <= maxEchoedDims {
		resp.ReferenceVector = ref.vector
	}
	return resp, nil
}

func normalize(req *Request) error {
	if req.Table == "" {
		return fmt.Errorf("table_name is required: %w", domain.ErrInvalidInput)
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit < 1 || req.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d: %w", MaxLimit, domain.ErrInvalidInput)
	}
	if t := req.Threshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("similarity_threshold must be between 0 and 1: %w", domain.ErrInvalidInput)
	}
	if req.ExcludeSelf == nil {
		exclude := true
		req.ExcludeSelf = &exclude
	}
	switch req.InputType {
	case InputID, InputVector, InputText:
		return nil
	default:
		return fmt.Errorf("unsupported input type %q: %w", req.InputType, domain.ErrInvalidInput)
	}
}

func (s *Service) reference(ctx context.Context, req Request) (reference, error) {
	col, err := s.column(ctx, req.Table, req.VectorColumn)
	if err != nil {
		return reference{}, err
	}

	switch req.InputType {
	case InputVector:
		vec, err := floats(req.InputValue)
		if err != nil {
			return reference{}, fmt.Errorf("input_value must be a list of numbers: %w", domain.ErrInvalidInput)
		}
		return reference{vector: vec, column: col}, nil

	case InputText:
		text, ok := req.InputValue.(string)
		if !ok || strings.TrimSpace(text) == "" {
			return reference{}, fmt.Errorf("input_value must be non-empty text: %w", domain.ErrInvalidInput)
		}
		if s.embedder == nil {
			return reference{}, fmt.Errorf("text input needs an embedding provider: %w", domain.ErrEmbeddingProviderError)
		}
		vec, err := s.embedder.Embed(ctx, text, col)
		if err != nil {
			return reference{}, fmt.Errorf("embed reference text: %w", err)
		}
		return reference{vector: vec, column: col}, nil

	default:
		id, err := idString(req.InputValue)
		if err != nil {
			return reference{}, err
		}
		rec, err := s.records.Get(ctx, req.Table, id)
		if err != nil {
			return reference{}, fmt.Errorf("get reference record: %w", err)
		}
		vec, err := storedVector(rec[col.Column], col.Column)
		if err != nil {
			return reference{}, err
		}
		return reference{vector: vec, column: col, docID: rec["id"]}, nil
	}
}

// column picks the requested vector column, or the first configured one.
func (s *Service) column(ctx context.Context, table, name string) (vector.ColumnConfig, error) {
	cols, err := s.cols.GetVectorColumns(ctx, table)
	if err != nil {
		return vector.ColumnConfig{}, err
	}
	if len(cols) == 0 {
		return vector.ColumnConfig{}, domain.NewVectorConfigMissing(table, name)
	}
	if name == "" {
		s.logger.Debug("Auto-selected vector column",
			zap.String("table", table),
			zap.String("column", cols[0].Column),
		)
		return cols[0], nil
	}
	for _, c := range cols {
		if c.Column == name {
			return c, nil
		}
	}
	return vector.ColumnConfig{}, domain.NewVectorConfigMissing(table, name)
}

func (s *Service) similar(ctx context.Context, req Request, ref reference) ([]Item, error) {
	excludeSelf := *req.ExcludeSelf && req.InputType == InputID
	k := req.Limit
	if excludeSelf {
		k++
	}

	body, err := s.composer.Compose(composer.Vector, composer.Params{
		Table:   req.Table,
		Filters: Filters(req.Filters),
		Vector:  &vector.SearchSpec{Field: ref.column.Column, Vector: ref.vector, K: k},
	})
	if err != nil {
		return nil, err
	}
	compiled, err := request.NewJSON(request.PathSearch, body, result.Hits)
	if err != nil {
		return nil, domain.NewCompilationError("recommend", "%v", err)
	}

	raw, err := s.backend.Do(ctx, compiled)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	res, err := s.norm.Normalize(raw, compiled.Shape())
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	selfID := fmt.Sprint(ref.docID)
	items := make([]Item, 0, len(res.Records))
	for _, rec := range res.Records {
		if excludeSelf && fmt.Sprint(rec["id"]) == selfID {
			continue
		}
		dist := number(rec["_knn_dist"])
		score := Score(dist)
		if req.Threshold != nil && score < *req.Threshold {
			continue
		}
		data := make(map[string]any, len(rec))
		for k, v := range rec {
			if k == ref.column.Column || k == "_knn_dist" || k == "_score" {
				continue
			}
			data[k] = v
		}
		items = append(items, Item{ID: rec["id"], Score: score, Distance: dist, Data: data})
		if len(items) == req.Limit {
			break
		}
	}
	return items, nil
}

// Filters converts a simple filter map: scalars match exactly, lists match any
// element and objects hold range bounds (gt, gte, lt, lte). Fields are sorted.
func Filters(m map[string]any) []query.Filter {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []query.Filter
	for _, f := range fields {
		switch v := m[f].(type) {
		case []any:
			out = append(out, query.Filter{Field: f, Operator: query.In, Value: v})
		case map[string]any:
			for _, op := range []query.Operator{query.Gt, query.Gte, query.Lt, query.Lte} {
				if bound, ok := v[string(op)]; ok {
					out = append(out, query.Filter{Field: f, Operator: op, Value: bound})
				}
			}
		case nil:
		default:
			out = append(out, query.Filter{Field: f, Operator: query.Eq, Value: v})
		}
	}
	return out
}

func idString(v any) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", fmt.Errorf("document id %v must be numeric: %w", v, domain.ErrInvalidInput)
	}
	return s, nil
}

// storedVector reads a vector attribute, stored either as a list or as "(x,y,...)" text.
func storedVector(v any, column string) ([]float32, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("vector column %q is empty: %w", column, domain.ErrNotFound)
	case []any:
		if len(x) == 0 {
			return nil, fmt.Errorf("vector column %q is empty: %w", column, domain.ErrNotFound)
		}
		vec, err := floats(x)
		if err != nil {
			return nil, fmt.Errorf("column %q: %v: %w", column, err, domain.ErrInvalidInput)
		}
		return vec, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, fmt.Errorf("vector column %q is empty: %w", column, domain.ErrNotFound)
		}
		for _, scheme := range []string{"http://", "https://", "ftp://"} {
			if strings.HasPrefix(s, scheme) {
				return nil, fmt.Errorf("column %q holds URLs, not vectors: %w", column, domain.ErrInvalidInput)
			}
		}
		parts := strings.Split(strings.Trim(s, "()"), ",")
		vec := make([]float32, len(parts))
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return nil, fmt.Errorf("column %q holds text, not vectors: %w", column, domain.ErrInvalidInput)
			}
			vec[i] = float32(f)
		}
		if len(vec) < minStoredDims {
			return nil, fmt.Errorf("column %q has too few dimensions (%d) for a vector: %w", column, len(vec), domain.ErrInvalidInput)
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("unexpected vector format %T in column %q: %w", v, column, domain.ErrInvalidInput)
	}
}

func floats(v any) ([]float32, error) {
	var list []any
	switch x := v.(type) {
	case []float32:
		return x, nil
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		list = x
	default:
		return nil, fmt.Errorf("not a list: %T", v)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	out := make([]float32, len(list))
	for i, e := range list {
		switch n := e.(type) {
		case float64:
			out[i] = float32(n)
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, err
			}
			out[i] = float32(f)
		default:
			return nil, fmt.Errorf("element %d is %T", i, e)
		}
	}
	return out, nil
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
