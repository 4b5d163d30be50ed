// Package embedding generates vectors for vector columns: single inputs,
// multi-field records and change detection for combined columns.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// ErrNoContent means none of a column's source fields carries text to embed.
var ErrNoContent = errors.New("no source field has content")

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".webp": {}, ".bmp": {}, ".svg": {}, ".tiff": {},
}

// Classify reports whether input is an image (data URI or image URL) or text.
func Classify(input string) domain.InputKind {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(strings.ToLower(s), "data:image/") {
		return domain.InputImage
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.InputText
	}
	if _, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
		return domain.InputImage
	}
	return domain.InputText
}

// Orchestrator routes embedding work to the configured providers.
type Orchestrator struct {
	text     domain.TextEmbedder
	image    domain.ImageEmbedder
	combined domain.CombinedEmbedder
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator. image and combined may be nil:
// images are then rejected and multi-field vectors are averaged locally.
func NewOrchestrator(
	text domain.TextEmbedder,
	image domain.ImageEmbedder,
	combined domain.CombinedEmbedder,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{text: text, image: image, combined: combined, logger: logger}
}

// Embed generates the vector of one input with the column's model.
func (o *Orchestrator) Embed(ctx context.Context, input string, cfg vector.ColumnConfig) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty embedding input: %w", domain.ErrInvalidInput)
	}

	var (
		vecs [][]float32
		err  error
	)
	switch Classify(input) {
	case domain.InputImage:
		if o.image == nil {
			return nil, fmt.Errorf("image embeddings not configured: %w", domain.ErrEmbeddingProviderError)
		}
		vecs, err = o.image.EmbedImages(ctx, cfg.ModelName, []string{input})
	default:
		vecs, err = o.text.EmbedTexts(ctx, cfg.ModelName, []string{input})
	}
	if err != nil {
		return nil, fmt.Errorf("embed %s.%s: %w", cfg.Table, cfg.Column, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed %s.%s: empty result: %w", cfg.Table, cfg.Column, domain.ErrEmbeddingProviderError)
	}
	return vecs[0], nil
}

type weightedField struct {
	name    string
	content string
	weight  float64
}

// EmbedRecord generates the combined vector of a multi-field column from a record.
// Fields with empty content or non-positive weight are skipped.
func (o *Orchestrator) EmbedRecord(ctx context.Context, record map[string]any, cfg vector.ColumnConfig) ([]float32, error) {
	if !cfg.IsMultiField() {
		return nil, fmt.Errorf("column %s.%s has no combined fields: %w", cfg.Table, cfg.Column, domain.ErrInvalidInput)
	}

	fields := make([]weightedField, 0, len(cfg.CombinedFields.SourceFields))
	for _, name := range cfg.CombinedFields.SourceFields {
		content := strings.TrimSpace(FieldText(record[name]))
		w := cfg.CombinedFields.Weight(name)
		if content == "" || w <= 0 {
			continue
		}
		fields = append(fields, weightedField{name: name, content: content, weight: w})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s.%s: %w: %w", cfg.Table, cfg.Column, ErrNoContent, domain.ErrInvalidInput)
	}

	method := cfg.CombinedFields.CombineMethod
	if o.combined != nil {
		return o.embedCombined(ctx, fields, cfg, method)
	}
	if !averagedLocally(method) {
		return nil, fmt.Errorf("combine method %q needs the embedding service: %w", method, domain.ErrInvalidInput)
	}

	vecs := make([][]float32, len(fields))
	weights := make([]float64, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fields {
		weights[i] = f.weight
		g.Go(func() error {
			v, err := o.Embed(gctx, f.content, cfg)
			if err != nil {
				return fmt.Errorf("field %s: %w", f.name, err)
			}
			vecs[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return WeightedAverage(vecs, weights)
}

func (o *Orchestrator) embedCombined(ctx context.Context, fields []weightedField, cfg vector.ColumnConfig, method string) ([]float32, error) {
	req := domain.CombinedRequest{
		Fields:        make([]domain.FieldInput, len(fields)),
		CombineMethod: method,
		Normalize:     true,
	}
	for i, f := range fields {
		req.Fields[i] = domain.FieldInput{
			Content:   f.content,
			Kind:      Classify(f.content),
			Weight:    f.weight,
			ModelName: cfg.ModelName,
		}
	}
	vec, err := o.combined.EmbedCombined(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("combined embed %s.%s: %w", cfg.Table, cfg.Column, err)
	}
	return vec, nil
}

func averagedLocally(method string) bool {
	return method == "" || method == domain.CombineWeightedAverage
}

// WeightedAverage returns sum(w_i * v_i) / sum(w_i).
// All vectors must share one length.
func WeightedAverage(vecs [][]float32, weights []float64) ([]float32, error) {
	if len(vecs) == 0 || len(vecs) != len(weights) {
		return nil, fmt.Errorf("weighted average of %d vectors with %d weights: %w", len(vecs), len(weights), domain.ErrInvalidInput)
	}
	dims := len(vecs[0])
	sum := make([]float64, dims)
	var total float64
	for i, v := range vecs {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, expected %d: %w", i, len(v), dims, domain.ErrVectorDimMismatch)
		}
		for j, x := range v {
			sum[j] += weights[i] * float64(x)
		}
		total += weights[i]
	}
	if total <= 0 {
		return nil, fmt.Errorf("weights sum to %v: %w", total, domain.ErrInvalidInput)
	}
	out := make([]float32, dims)
	for j := range sum {
		out[j] = float32(sum[j] / total)
	}
	return out, nil
}

// FieldText is the string form of a record value used for embedding and change
// detection. Structured values are JSON-encoded.
func FieldText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
