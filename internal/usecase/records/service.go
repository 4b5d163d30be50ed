// Package records implements record CRUD and raw command execution against the backend.
package records

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/compiler"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
	"github.com/kailas-cloud/mantadmin/internal/router"
	"github.com/kailas-cloud/mantadmin/internal/usecase/embedding"
)

// Service handles record reads, writes and free-form commands.
// Multi-field vector columns are filled on create and regenerated on update
// when one of their source fields changes.
type Service struct {
	backend  Backend
	norm     Normalizer
	cols     VectorColumns
	embedder RecordEmbedder
	logger   *zap.Logger
}

// New creates a records service. cols and embedder may be nil, which disables
// automatic vector generation.
func New(b Backend, n Normalizer, cols VectorColumns, embedder RecordEmbedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: b, norm: n, cols: cols, embedder: embedder, logger: logger}
}

// List returns one page of records through the JSON search path.
func (s *Service) List(ctx context.Context, spec query.Spec) (result.Normalized, error) {
	req, err := compiler.CompileList(spec)
	if err != nil {
		return result.Normalized{}, err
	}
	return s.read(ctx, req, "list records")
}

// ListSQL returns one page of records through the SQL text path.
func (s *Service) ListSQL(ctx context.Context, spec query.Spec) (result.Normalized, error) {
	req, err := compiler.CompileSQL(spec)
	if err != nil {
		return result.Normalized{}, err
	}
	return s.read(ctx, req, "list records")
}

// Get returns one record by id. Ids longer than a float64 can carry exactly are
// retried as a prefix range and resolved to the first match.
func (s *Service) Get(ctx context.Context, table, id string) (result.Record, error) {
	req, err := compiler.CompileGet(table, id)
	if err != nil {
		return nil, err
	}
	res, err := s.read(ctx, req, "get record")
	if err != nil {
		return nil, err
	}
	if len(res.Records) > 0 {
		return res.Records[0], nil
	}
	if !compiler.NeedsIDFallback(id) {
		return nil, fmt.Errorf("record %s/%s: %w", table, id, domain.ErrNotFound)
	}

	req, err = compiler.CompileIDPrefixRange(table, id)
	if err != nil {
		return nil, err
	}
	res, err = s.read(ctx, req, "get record by id prefix")
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("record %s/%s: %w", table, id, domain.ErrNotFound)
	}
	s.logger.Debug("Resolved record through id prefix",
		zap.String("table", table),
		zap.String("requested_id", id),
		zap.Any("resolved_id", res.Records[0]["id"]),
		zap.Int("candidates", len(res.Records)),
	)
	return res.Records[0], nil
}

// Create inserts a record. Missing multi-field vectors are generated from the document.
func (s *Service) Create(ctx context.Context, table string, doc map[string]any) (result.Mutation, error) {
	doc = maps.Clone(doc)
	if doc == nil {
		doc = map[string]any{}
	}
	cols, err := s.multiFieldColumns(ctx, table)
	if err != nil {
		return result.Mutation{}, err
	}
	for _, col := range cols {
		if _, set := doc[col.Column]; set {
			continue
		}
		if err := s.fillVector(ctx, doc, doc, col); err != nil {
			return result.Mutation{}, err
		}
	}

	req, err := compiler.CompileCreate(table, doc)
	if err != nil {
		return result.Mutation{}, err
	}
	return s.mutate(ctx, req, "create record")
}

// Update applies a partial update. Multi-field vectors whose source fields changed
// are regenerated from the stored record merged with the update.
func (s *Service) Update(ctx context.Context, table, id string, doc map[string]any) (result.Mutation, error) {
	doc = maps.Clone(doc)
	if doc == nil {
		doc = map[string]any{}
	}
	cols, err := s.multiFieldColumns(ctx, table)
	if err != nil {
		return result.Mutation{}, err
	}

	if len(cols) > 0 {
		current, err := s.Get(ctx, table, id)
		if err != nil {
			return result.Mutation{}, err
		}
		merged := maps.Clone(current)
		maps.Copy(merged, doc)
		for _, col := range cols {
			if _, set := doc[col.Column]; set {
				continue
			}
			if !embedding.NewTracker(col, current).NeedsRegeneration(doc) {
				continue
			}
			if err := s.fillVector(ctx, doc, merged, col); err != nil {
				return result.Mutation{}, err
			}
		}
	}

	req, err := compiler.CompileUpdate(table, id, doc)
	if err != nil {
		return result.Mutation{}, err
	}
	return s.mutate(ctx, req, "update record")
}

// Delete removes a record by id.
func (s *Service) Delete(ctx context.Context, table, id string) (result.Mutation, error) {
	req, err := compiler.CompileDelete(table, id)
	if err != nil {
		return result.Mutation{}, err
	}
	m, err := s.mutate(ctx, req, "delete record")
	if err != nil {
		return result.Mutation{}, err
	}
	if m.Affected == 0 {
		return m, fmt.Errorf("record %s/%s: %w", table, id, domain.ErrNotFound)
	}
	return m, nil
}

// Execute runs a free-form command, routed by its leading verb.
// raw selects the tabular variant of the SQL endpoint.
func (s *Service) Execute(ctx context.Context, command string, raw bool) (result.Normalized, error) {
	if command == "" {
		return result.Normalized{}, domain.NewCompilationError("execute", "command is required")
	}
	return s.read(ctx, router.Compile(command, raw), "execute")
}

func (s *Service) read(ctx context.Context, req request.Compiled, op string) (result.Normalized, error) {
	raw, err := s.backend.Do(ctx, req)
	if err != nil {
		return result.Normalized{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.norm.Normalize(raw, req.Shape())
	if err != nil {
		return result.Normalized{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Service) mutate(ctx context.Context, req request.Compiled, op string) (result.Mutation, error) {
	raw, err := s.backend.Do(ctx, req)
	if err != nil {
		return result.Mutation{}, fmt.Errorf("%s: %w", op, err)
	}
	m, err := s.norm.Mutation(raw)
	if err != nil {
		return result.Mutation{}, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func (s *Service) multiFieldColumns(ctx context.Context, table string) ([]vector.ColumnConfig, error) {
	if s.cols == nil || s.embedder == nil {
		return nil, nil
	}
	all, err := s.cols.GetVectorColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	var out []vector.ColumnConfig
	for _, c := range all {
		if c.IsMultiField() {
			out = append(out, c)
		}
	}
	return out, nil
}

// fillVector writes the combined vector of col, computed from source, into doc.
// A record with no content in any source field is left without a vector.
func (s *Service) fillVector(ctx context.Context, doc, source map[string]any, col vector.ColumnConfig) error {
	vec, err := s.embedder.EmbedRecord(ctx, source, col)
	if errors.Is(err, embedding.ErrNoContent) {
		s.logger.Debug("Skipping vector generation",
			zap.String("table", col.Table),
			zap.String("column", col.Column),
			zap.Error(err),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("generate %s: %w", col.Column, err)
	}
	doc[col.Column] = vec
	return nil
}
