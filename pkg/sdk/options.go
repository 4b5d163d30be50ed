package mantadmin

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	manticoreURL string
	httpClient   *http.Client

	embeddingURL   string
	embeddingModel string
	textEmbedder   TextEmbedder

	metadataTTL        time.Duration
	sweepInterval      time.Duration
	oversamplingFactor int
	oversamplingFloor  int
	ensureSettings     bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithManticore sets the base URL of the Manticore HTTP API (required).
func WithManticore(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.manticoreURL = baseURL
	})
}

// WithHTTPClient sets the HTTP client used for the backend and the embedding service.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithEmbeddingService enables the embedding service for text, image and
// multi-field embeddings. defaultModel is used when a column names none.
func WithEmbeddingService(baseURL string, defaultModel ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingURL = baseURL
		if len(defaultModel) > 0 {
			c.embeddingModel = defaultModel[0]
		}
	})
}

// WithTextEmbedder overrides the text embedding provider.
// Images and multi-field vectors still go through the embedding service.
func WithTextEmbedder(e TextEmbedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.textEmbedder = e
	})
}

// WithMetadataTTL sets how long vector column settings are cached.
// Default: 5 minutes. The sweep runs at a fifth of the TTL.
func WithMetadataTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.metadataTTL = ttl
	})
}

// WithOversampling sets the KNN candidate count for filtered vector searches:
// max(k*factor, floor). Defaults: 10 and 1000.
func WithOversampling(factor, floor int) Option {
	return optionFunc(func(c *clientConfig) {
		c.oversamplingFactor = factor
		c.oversamplingFloor = floor
	})
}

// WithSettingsTableBootstrap creates the vector settings table in New when missing.
func WithSettingsTableBootstrap() Option {
	return optionFunc(func(c *clientConfig) {
		c.ensureSettings = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
