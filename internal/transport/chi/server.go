package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	logpkg "github.com/kailas-cloud/mantadmin/internal/logger"
	healthuc "github.com/kailas-cloud/mantadmin/internal/usecase/health"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the admin API on top of the use case services.
type Server struct {
	records       RecordService
	search        SearchService
	columns       VectorColumnService
	recommend     Recommender
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	records RecordService,
	search SearchService,
	columns VectorColumnService,
	recommend Recommender,
	health HealthService,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		records:   records,
		search:    search,
		columns:   columns,
		recommend: recommend,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		transportErrorHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrCompilation, http.StatusBadRequest, CodeCompilationFailed),
		sentinelHandler(domain.ErrVectorConfigMissing, http.StatusUnprocessableEntity, CodeVectorConfigMissing),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderErr),
		sentinelHandler(domain.ErrShapeMismatch, http.StatusBadGateway, CodeBackendResponseFormat),
	}
	return s
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if calls := usage.Calls(); calls > 0 {
		w.Header().Set("X-Embedding-Calls", strconv.Itoa(calls))
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
	}
}

// decodeBody reads a JSON body. Numbers stay json.Number so long ids keep their digits.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathParam binds a required path segment.
func pathParam(name, value string) (string, error) {
	var dest string
	err := runtime.BindStyledParameterWithOptions("simple", name, value, &dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	if dest == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return dest, nil
}

// boolQuery binds an optional boolean query parameter.
func boolQuery(r *http.Request, name string) (bool, error) {
	var v *bool
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return false, fmt.Errorf("invalid query parameter %s: %w", name, err)
	}
	return v != nil && *v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe error message.
// Compilation and validation errors describe the caller's own input and are passed through.
func safeDomainMessage(err error) string {
	var ce *domain.CompilationError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	var vce *domain.VectorConfigMissingError
	if errors.As(err, &vce) {
		return vce.Error()
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}

	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrShapeMismatch,
		domain.ErrTransport,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// transportErrorHandler surfaces the backend's own error message.
// A backend 404 stays a 404; anything else is a bad gateway.
func transportErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrTransport) {
		return false
	}
	var te *domain.TransportError
	if !errors.As(err, &te) {
		writeError(w, http.StatusBadGateway, CodeBackendError, msg)
		return true
	}
	if te.StatusCode == http.StatusNotFound {
		writeError(w, http.StatusNotFound, CodeNotFound, te.Message)
		return true
	}
	writeError(w, http.StatusBadGateway, CodeBackendError, te.Message)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("Domain error",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
