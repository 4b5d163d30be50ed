package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in a report.
const (
	ComponentBackend   = "backend"
	ComponentEmbedding = "embedding"
	ComponentCache     = "cache"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	backend   Pinger
	embedding EmbeddingChecker
	cache     Pinger
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Service. embedding and cache can be nil.
func New(backend Pinger, embedding EmbeddingChecker, cache Pinger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:   backend,
		embedding: embedding,
		cache:     cache,
		timeout:   DefaultTimeout,
		logger:    logger,
	}
}

// WithTimeout overrides the per-component timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all component checks concurrently.
// A failing backend makes the report unhealthy, any other failure degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]func(context.Context) error{
		ComponentBackend: s.backend.Ping,
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.embedding.HealthCheck
	}
	if s.cache != nil {
		checks[ComponentCache] = s.cache.Ping
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := check(cctx); err != nil {
				res = CheckError
				s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for name, r := range results {
		if r != CheckError {
			continue
		}
		if name == ComponentBackend {
			status = Unhealthy
			break
		}
		status = Degraded
	}
	return Report{Status: status, Checks: results}
}
