package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/mantadmin/internal/domain/vector"
)

// ListVectorColumns handles GET /v1/tables/{table}/vector-columns.
// Settings lookups degrade to an empty list, so this never reports backend errors.
func (s *Server) ListVectorColumns(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam("table", chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	cols, err := s.columns.GetVectorColumns(r.Context(), table)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, VectorColumnsResponse{Table: table, Columns: cols})
}

// SaveVectorColumn handles PUT /v1/tables/{table}/vector-columns/{column}.
func (s *Server) SaveVectorColumn(w http.ResponseWriter, r *http.Request) {
	table, column, ok := tableAndColumn(w, r)
	if !ok {
		return
	}

	var req VectorColumnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if req.ModelName == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "model_name is required")
		return
	}
	if cf := req.CombinedFields; cf != nil && len(cf.SourceFields) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "combined_fields.source_fields must not be empty")
		return
	}

	cfg := vector.ColumnConfig{
		Table:          table,
		Column:         column,
		ModelName:      req.ModelName,
		CombinedFields: req.CombinedFields,
	}
	if err := s.columns.Save(r.Context(), cfg); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// DeleteVectorColumn handles DELETE /v1/tables/{table}/vector-columns/{column}.
func (s *Server) DeleteVectorColumn(w http.ResponseWriter, r *http.Request) {
	table, column, ok := tableAndColumn(w, r)
	if !ok {
		return
	}

	if err := s.columns.Delete(r.Context(), table, column); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func tableAndColumn(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	table, err := pathParam("table", chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return "", "", false
	}
	column, err := pathParam("column", chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return "", "", false
	}
	return table, column, true
}
