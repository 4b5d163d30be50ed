// Package manticore sends compiled requests to the search backend over HTTP.
package manticore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/logger"
	"github.com/kailas-cloud/mantadmin/internal/metrics"
	"github.com/kailas-cloud/mantadmin/internal/normalizer"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 20

// Config holds backend connection settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// Logger is used when the request context carries none.
	Logger *zap.Logger
}

// Client is the search backend HTTP client. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Client{baseURL: u.String(), http: hc, logger: l}, nil
}

// Do sends req and returns the raw response body of a 2xx answer.
// Other statuses become a *domain.TransportError carrying the backend's message.
func (c *Client) Do(ctx context.Context, req request.Compiled) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+req.URL(), bytes.NewReader(req.Body()))
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", string(req.ContentKind()))
	httpReq.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", reqID)

	transport := string(req.Transport())
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	metrics.BackendRequestDuration.WithLabelValues(transport, req.Path()).Observe(duration.Seconds())

	log := logger.FromContextOr(ctx, c.logger)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(transport, req.Path(), "network_error").Inc()
		log.Warn("Backend request failed",
			zap.String("backend_request_id", reqID),
			zap.String("path", req.Path()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("backend %s: %w", req.Path(), ctxErr)
		}
		return nil, domain.NewTransportError(0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	metrics.BackendRequestsTotal.WithLabelValues(transport, req.Path(), strconv.Itoa(resp.StatusCode)).Inc()
	if err != nil {
		return nil, domain.NewTransportError(resp.StatusCode, "read response: "+err.Error())
	}

	log.Debug("Backend request",
		zap.String("backend_request_id", reqID),
		zap.String("path", req.Path()),
		zap.String("transport", transport),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewTransportError(resp.StatusCode, errorMessage(resp.Status, body))
	}
	return body, nil
}

// Ping checks that the backend answers HTTP.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode >= 500 {
		return domain.NewTransportError(resp.StatusCode, resp.Status)
	}
	return nil
}

// errorMessage unwraps {"error": {...} | "..."} and falls back to the status line.
func errorMessage(status string, body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if msg := normalizer.ErrorMessage(payload.Error); msg != "" {
			return msg
		}
	}
	// cli_json answers with an array of result sets.
	var sets []struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &sets) == nil {
		for _, s := range sets {
			if s.Error != "" {
				return s.Error
			}
		}
	}
	return status
}
