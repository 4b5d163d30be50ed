package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing record or table.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a malformed caller request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransport signals a network or HTTP failure talking to the search backend.
	ErrTransport = errors.New("transport error")
	// ErrCompilation signals an operation that cannot be expressed as a backend request.
	ErrCompilation = errors.New("compilation error")
	// ErrShapeMismatch signals a backend response that matched no known shape.
	ErrShapeMismatch = errors.New("response shape mismatch")
	// ErrVectorConfigMissing signals a vector search on a column without embedding configuration.
	ErrVectorConfigMissing = errors.New("vector column configuration missing")
	// ErrVectorDimMismatch signals embeddings of different lengths combined together.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// TransportError carries the backend's unwrapped error message and HTTP status.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", ErrTransport.Error(), e.Message)
	}
	return fmt.Sprintf("%s: %d: %s", ErrTransport.Error(), e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// NewTransportError creates a transport error.
func NewTransportError(status int, message string) error {
	return &TransportError{StatusCode: status, Message: message}
}

// CompilationError names the operation and the reason it could not be compiled.
type CompilationError struct {
	Op     string
	Reason string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCompilation.Error(), e.Op, e.Reason)
}

func (e *CompilationError) Unwrap() error { return ErrCompilation }

// NewCompilationError creates a compilation error.
func NewCompilationError(op, format string, args ...any) error {
	return &CompilationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// VectorConfigMissingError identifies the column that lacks configuration.
type VectorConfigMissingError struct {
	Table  string
	Column string
}

func (e *VectorConfigMissingError) Error() string {
	return fmt.Sprintf("%s: %s.%s", ErrVectorConfigMissing.Error(), e.Table, e.Column)
}

func (e *VectorConfigMissingError) Unwrap() error { return ErrVectorConfigMissing }

// NewVectorConfigMissing creates a missing vector configuration error.
func NewVectorConfigMissing(table, column string) error {
	return &VectorConfigMissingError{Table: table, Column: column}
}
