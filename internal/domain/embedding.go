package domain

import (
	"context"
	"sync"
)

// InputKind is the kind of content an embedding is generated from.
type InputKind string

// Input kinds.
const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
)

// Combine methods understood by the embedding service.
const (
	CombineWeightedAverage = "weighted_average"
	CombineConcatenate     = "concatenate"
	CombineMaxPool         = "max_pool"
	CombineSum             = "sum"
)

// TextEmbedder turns texts into vectors with the named model.
// An empty model selects the provider default.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// ImageEmbedder turns images (data URIs or URLs) into vectors.
type ImageEmbedder interface {
	EmbedImages(ctx context.Context, model string, images []string) ([][]float32, error)
}

// FieldInput is one weighted field of a combined embedding request.
type FieldInput struct {
	Content   string
	Kind      InputKind
	Weight    float64
	ModelName string
}

// CombinedRequest asks the provider to embed several fields into one vector.
type CombinedRequest struct {
	Fields        []FieldInput
	CombineMethod string
	Normalize     bool
}

// CombinedEmbedder produces a single vector from several fields in one call.
type CombinedEmbedder interface {
	EmbedCombined(ctx context.Context, req CombinedRequest) ([]float32, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type embeddingUsageKey struct{}

// EmbeddingUsage collects provider usage for a single API request.
// Safe for concurrent use: multi-field generation records from several goroutines.
type EmbeddingUsage struct {
	mu     sync.Mutex
	calls  int
	tokens int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector stored in ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record adds one provider call and its token count. No-op on nil.
func (u *EmbeddingUsage) Record(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.calls++
	u.tokens += tokens
	u.mu.Unlock()
}

// Calls returns the number of provider calls made.
func (u *EmbeddingUsage) Calls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

// Tokens returns the total tokens consumed.
func (u *EmbeddingUsage) Tokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens
}
