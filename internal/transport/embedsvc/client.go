// Package embedsvc is the HTTP client of the embedding service
// (text, image and multi-field embeddings).
package embedsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/metrics"
)

const (
	provider         = "embedsvc"
	maxResponseBytes = 32 << 20
)

// Config holds embedding service connection settings.
type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	DefaultModel string
	// Normalize asks the service for unit-length vectors.
	Normalize bool
	Logger    *zap.Logger
}

// Client talks to the embedding service.
type Client struct {
	baseURL      string
	http         *http.Client
	defaultModel string
	normalize    bool
	logger       *zap.Logger
}

// New creates an embedding service client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid embedding service url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Client{
		baseURL:      u.String(),
		http:         hc,
		defaultModel: cfg.DefaultModel,
		normalize:    cfg.Normalize,
		logger:       l,
	}, nil
}

type textRequest struct {
	Texts     []string `json:"texts"`
	ModelName string   `json:"model_name,omitempty"`
	Normalize bool     `json:"normalize"`
}

type imageRequest struct {
	Images    []string `json:"images"`
	ModelName string   `json:"model_name,omitempty"`
	Normalize bool     `json:"normalize"`
}

type fieldInput struct {
	Content   string  `json:"content"`
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
	ModelName string  `json:"model_name,omitempty"`
}

type multiFieldRequest struct {
	Fields        []fieldInput `json:"fields"`
	CombineMethod string       `json:"combine_method"`
	Normalize     bool         `json:"normalize"`
}

type embeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	ModelName  string      `json:"model_name"`
	Dimensions int         `json:"dimensions"`
}

// EmbedTexts implements domain.TextEmbedder.
func (c *Client) EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := textRequest{Texts: texts, ModelName: c.model(model), Normalize: c.normalize}
	resp, err := c.post(ctx, "/embeddings/text", string(domain.InputText), req)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, c.countMismatch(string(domain.InputText), len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedImages implements domain.ImageEmbedder.
func (c *Client) EmbedImages(ctx context.Context, model string, images []string) ([][]float32, error) {
	if len(images) == 0 {
		return nil, nil
	}
	req := imageRequest{Images: images, ModelName: c.model(model), Normalize: c.normalize}
	resp, err := c.post(ctx, "/embeddings/image", string(domain.InputImage), req)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(images) {
		return nil, c.countMismatch(string(domain.InputImage), len(images), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedCombined implements domain.CombinedEmbedder via the multi-field endpoint.
func (c *Client) EmbedCombined(ctx context.Context, r domain.CombinedRequest) ([]float32, error) {
	if len(r.Fields) == 0 {
		return nil, fmt.Errorf("combined embedding without fields: %w", domain.ErrInvalidInput)
	}
	method := r.CombineMethod
	if method == "" {
		method = domain.CombineWeightedAverage
	}
	req := multiFieldRequest{
		Fields:        make([]fieldInput, len(r.Fields)),
		CombineMethod: method,
		Normalize:     r.Normalize,
	}
	for i, f := range r.Fields {
		kind := f.Kind
		if kind == "" {
			kind = domain.InputText
		}
		req.Fields[i] = fieldInput{
			Content:   f.Content,
			Type:      string(kind),
			Weight:    f.Weight,
			ModelName: c.model(f.ModelName),
		}
	}

	resp, err := c.post(ctx, "/embeddings/multi-field", "multi_field", req)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != 1 {
		return nil, c.countMismatch("multi_field", 1, len(resp.Embeddings))
	}
	return resp.Embeddings[0], nil
}

// HealthCheck calls GET /health.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service health: %s: %w", resp.Status, domain.ErrEmbeddingProviderError)
	}
	return nil
}

func (c *Client) model(m string) string {
	if m != "" {
		return m
	}
	return c.defaultModel
}

func (c *Client) post(ctx context.Context, path, kind string, payload any) (*embeddingResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", kind, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.fail(kind, "network_error")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s embedding: %w", kind, ctxErr)
		}
		c.logger.Warn("Embedding service unreachable", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s embedding: %s: %w", kind, err.Error(), domain.ErrEmbeddingProviderError)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.fail(kind, "read_error")
		return nil, fmt.Errorf("read %s response: %s: %w", kind, err.Error(), domain.ErrEmbeddingProviderError)
	}

	if resp.StatusCode != http.StatusOK {
		c.fail(kind, "api_error")
		msg := extractDetail(raw)
		if msg == "" {
			msg = resp.Status
		}
		c.logger.Warn("Embedding service error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", msg),
		)
		return nil, fmt.Errorf("embedding service error %d: %s: %w", resp.StatusCode, msg, domain.ErrEmbeddingProviderError)
	}

	var out embeddingResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.fail(kind, "decode_error")
		return nil, fmt.Errorf("decode %s response: %s: %w", kind, err.Error(), domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, kind, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, kind).Observe(duration.Seconds())
	domain.UsageFromContext(ctx).Record(0)
	return &out, nil
}

func (c *Client) fail(kind, errType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, kind, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(provider, kind, errType).Inc()
}

func (c *Client) countMismatch(kind string, want, got int) error {
	c.fail(kind, "count_mismatch")
	return fmt.Errorf("expected %d %s embeddings, got %d: %w", want, kind, got, domain.ErrEmbeddingProviderError)
}

// extractDetail reads {"detail": "..."} or {"error": "..."} error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if len(parsed.Detail) > 0 {
		var s string
		if json.Unmarshal(parsed.Detail, &s) == nil {
			return s
		}
		// validation errors come as a list of objects
		return string(parsed.Detail)
	}
	return parsed.Error
}
