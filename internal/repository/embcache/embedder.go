package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/domain"
)

const cacheKeyPrefix = "mantadmin:emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches text embeddings in a key-value store, keyed by model and text.
type CachedEmbedder struct {
	inner      domain.TextEmbedder
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
// A zero ttl keeps entries until evicted by the store.
func New(
	inner domain.TextEmbedder,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// EmbedTexts returns cached vectors and sends only the misses to the inner embedder, in one call.
// Cache failures are logged and treated as misses.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = cacheKey(model, t)
	}

	out := make([][]float32, len(texts))
	cached, err := c.store.MGet(ctx, keys)
	if err != nil {
		c.logger.Warn("Failed to get cached embeddings", zap.Int("keys", len(keys)), zap.Error(err))
		cached = nil
	}
	for i := range cached {
		if i >= len(out) || len(cached[i]) == 0 {
			continue
		}
		vec, err := bytesToVector(cached[i])
		if err != nil {
			c.logger.Warn("Failed to parse cached embedding", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out[i] = vec
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	c.inc("hit", len(texts)-len(missIdx))
	c.inc("miss", len(missIdx))

	if len(missIdx) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedTexts(ctx, model, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(fresh) != len(missIdx) {
		return nil, fmt.Errorf("expected %d embeddings, got %d: %w", len(missIdx), len(fresh), domain.ErrEmbeddingProviderError)
	}

	for j, i := range missIdx {
		out[i] = fresh[j]
		if err := c.store.SetWithTTL(ctx, keys[i], vectorToCacheBytes(fresh[j]), c.ttl); err != nil {
			c.logger.Warn("Failed to cache embedding", zap.String("key", keys[i]), zap.Error(err))
		}
	}
	return out, nil
}

func (c *CachedEmbedder) inc(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
