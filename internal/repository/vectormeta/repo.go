// Package vectormeta reads and writes vector column settings stored in the search backend.
package vectormeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mantadmin/internal/cache"
	"github.com/kailas-cloud/mantadmin/internal/compiler"
	"github.com/kailas-cloud/mantadmin/internal/domain"
	"github.com/kailas-cloud/mantadmin/internal/domain/dsl"
	"github.com/kailas-cloud/mantadmin/internal/domain/request"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// settingsLimit caps the rows read per table.
const settingsLimit = 100

const createSettingsTable = "CREATE TABLE IF NOT EXISTS " + vector.SettingsTable + ` (
id bigint,
tbl_name text,
col_name text,
mdl_name text,
combined_fields json,
created_at bigint,
updated_at bigint
)`

// backend sends compiled requests to the search backend.
type backend interface {
	Do(ctx context.Context, req request.Compiled) ([]byte, error)
}

// normalizer decodes backend responses.
type normalizer interface {
	Normalize(raw []byte, shape result.Shape) (result.Normalized, error)
}

// Repo implements usecase/vectorcols.Repository on top of the settings table.
type Repo struct {
	backend backend
	norm    normalizer
	clock   cache.Clock
	logger  *zap.Logger
}

// New creates a vector settings repository. A nil clock uses the system clock.
func New(b backend, n normalizer, clock cache.Clock, logger *zap.Logger) *Repo {
	if clock == nil {
		clock = cache.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{backend: b, norm: n, clock: clock, logger: logger}
}

// Fetch returns the configured vector columns of table, enriched with the
// float_vector attributes declared in the table schema.
// Schema lookup failures are logged; the settings alone are still returned.
func (r *Repo) Fetch(ctx context.Context, table string) ([]vector.ColumnConfig, error) {
	if !compiler.ValidIdentifier(table) {
		return nil, domain.NewCompilationError("fetch vector columns", "invalid table name %q", table)
	}

	rows, err := r.rows(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []vector.ColumnConfig{}, nil
	}

	configs := latestPerColumn(rows)

	attrs, err := r.schemaVectors(ctx, table)
	if err != nil {
		r.logger.Warn("Failed to read table schema",
			zap.String("table", table),
			zap.Error(err),
		)
	}
	for i := range configs {
		if a, ok := attrs[configs[i].Column]; ok {
			configs[i].KNNType = a.KNNType
			configs[i].SimilarityMetric = a.Similarity
			configs[i].Dimensions = a.Dims
		}
	}
	return configs, nil
}

// EnsureSettingsTable creates the settings table when DESCRIBE does not find it.
func (r *Repo) EnsureSettingsTable(ctx context.Context) error {
	if res, err := r.exec(ctx, "DESCRIBE "+vector.SettingsTable); err == nil && len(res.Records) > 0 {
		return nil
	}

	if _, err := r.exec(ctx, createSettingsTable); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		return fmt.Errorf("create settings table: %w", err)
	}
	r.logger.Info("Created vector settings table", zap.String("table", vector.SettingsTable))
	return nil
}

// Save stores the settings of one column. An existing row for (table, column)
// is replaced in place, keeping its id and creation time.
func (r *Repo) Save(ctx context.Context, cfg vector.ColumnConfig) error {
	if !compiler.ValidIdentifier(cfg.Table) || !compiler.ValidIdentifier(cfg.Column) {
		return domain.NewCompilationError("save vector column", "invalid identifier %q.%q", cfg.Table, cfg.Column)
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required: %w", domain.ErrInvalidInput)
	}

	if _, err := r.exec(ctx, createSettingsTable); err != nil {
		r.logger.Warn("Failed to ensure settings table", zap.Error(err))
	}

	combined := "NULL"
	if cfg.CombinedFields != nil {
		b, err := json.Marshal(cfg.CombinedFields)
		if err != nil {
			return fmt.Errorf("marshal combined fields: %w", err)
		}
		combined = compiler.Quote(string(b))
	}

	now := r.clock.Now()
	id := strconv.FormatInt(now.UnixMicro(), 10)
	createdAt := now.Unix()
	verb := "INSERT"

	existing, err := r.rows(ctx, cfg.Table)
	if err != nil {
		r.logger.Debug("Settings lookup before save failed", zap.Error(err))
	}
	for _, row := range existing {
		if row.Column == cfg.Column {
			id, createdAt, verb = row.ID, row.CreatedAt, "REPLACE"
			break
		}
	}

	stmt := fmt.Sprintf(
		"%s INTO %s (id, tbl_name, col_name, mdl_name, combined_fields, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %d, %d)",
		verb, vector.SettingsTable, id,
		compiler.Quote(cfg.Table), compiler.Quote(cfg.Column), compiler.Quote(cfg.ModelName),
		combined, createdAt, now.Unix(),
	)
	if _, err := r.exec(ctx, stmt); err != nil {
		return fmt.Errorf("save vector column %s.%s: %w", cfg.Table, cfg.Column, err)
	}
	return nil
}

// Delete removes the settings of one column. Returns domain.ErrNotFound when none exist.
func (r *Repo) Delete(ctx context.Context, table, column string) error {
	rows, err := r.rows(ctx, table)
	if err != nil {
		return err
	}
	var ids []string
	for _, row := range rows {
		if row.Column == column {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("vector column %s.%s: %w", table, column, domain.ErrNotFound)
	}
	return r.deleteIDs(ctx, ids)
}

// DeleteTable removes the settings of every column of table.
func (r *Repo) DeleteTable(ctx context.Context, table string) error {
	rows, err := r.rows(ctx, table)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return r.deleteIDs(ctx, ids)
}

func (r *Repo) deleteIDs(ctx context.Context, ids []string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", vector.SettingsTable, strings.Join(ids, ","))
	if _, err := r.exec(ctx, stmt); err != nil {
		return fmt.Errorf("delete vector settings: %w", err)
	}
	return nil
}

// rows reads the settings rows of table. The full-text match is narrowed to exact names.
func (r *Repo) rows(ctx context.Context, table string) ([]settingsRow, error) {
	req, err := request.NewJSON(request.PathSearch, dsl.SearchRequest{
		Table: vector.SettingsTable,
		Query: dsl.Match{Field: "tbl_name", Text: table},
		Limit: settingsLimit,
	}, result.Hits)
	if err != nil {
		return nil, fmt.Errorf("compile settings lookup: %w", err)
	}

	raw, err := r.backend.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch vector settings for %s: %w", table, err)
	}
	res, err := r.norm.Normalize(raw, req.Shape())
	if err != nil {
		return nil, fmt.Errorf("fetch vector settings for %s: %w", table, err)
	}

	out := make([]settingsRow, 0, len(res.Records))
	for _, rec := range res.Records {
		row, err := rowFromRecord(rec)
		if err != nil {
			r.logger.Warn("Skipping malformed vector settings row",
				zap.String("table", table),
				zap.Error(err),
			)
			continue
		}
		if row.Table == table {
			out = append(out, row)
		}
	}
	return out, nil
}

// schemaVectors parses SHOW CREATE TABLE for float_vector columns.
func (r *Repo) schemaVectors(ctx context.Context, table string) (map[string]vectorAttrs, error) {
	res, err := r.exec(ctx, "SHOW CREATE TABLE "+table)
	if err != nil {
		return nil, err
	}
	for _, rec := range res.Records {
		if stmt, ok := rec["create table"].(string); ok {
			return parseVectorAttrs(stmt), nil
		}
	}
	return nil, errors.New("no create statement in response")
}

func (r *Repo) exec(ctx context.Context, cmd string) (result.Normalized, error) {
	req := request.NewAdmin(cmd)
	raw, err := r.backend.Do(ctx, req)
	if err != nil {
		return result.Normalized{}, err
	}
	return r.norm.Normalize(raw, req.Shape())
}
