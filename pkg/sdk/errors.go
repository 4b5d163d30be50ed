package mantadmin

import (
	"errors"

	"github.com/kailas-cloud/mantadmin/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrTransport              = domain.ErrTransport
	ErrCompilation            = domain.ErrCompilation
	ErrShapeMismatch          = domain.ErrShapeMismatch
	ErrVectorConfigMissing    = domain.ErrVectorConfigMissing
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// TransportError carries the backend's HTTP status and error message.
// Use errors.As() to inspect it.
type TransportError = domain.TransportError

var errUnhealthy = errors.New("backend unhealthy")
