package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/mantadmin/internal/domain/query"
	"github.com/kailas-cloud/mantadmin/internal/domain/result"
)

// ListRecords handles POST /v1/tables/{table}/records:list.
// With ?sql=true the list is compiled to SQL instead of the search DSL.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam("table", chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	useSQL, err := boolQuery(r, "sql")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req ListRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	spec := query.Spec{
		Resource:   table,
		Pagination: req.Pagination,
		Sorters:    req.Sorters,
		Filters:    req.Filters,
	}

	var res result.Normalized
	if useSQL {
		res, err = s.records.ListSQL(r.Context(), spec)
	} else {
		res, err = s.records.List(r.Context(), spec)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetRecord handles GET /v1/tables/{table}/records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	table, id, ok := tableAndID(w, r)
	if !ok {
		return
	}

	rec, err := s.records.Get(r.Context(), table, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{Record: rec})
}

// CreateRecord handles POST /v1/tables/{table}/records.
func (s *Server) CreateRecord(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam("table", chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var doc map[string]any
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if len(doc) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "record must have at least one field")
		return
	}

	ctx, usage := newUsageContext(r)
	res, err := s.records.Create(ctx, table, doc)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// UpdateRecord handles PUT /v1/tables/{table}/records/{id}.
func (s *Server) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	table, id, ok := tableAndID(w, r)
	if !ok {
		return
	}

	var doc map[string]any
	if err := decodeBody(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if len(doc) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "update must change at least one field")
		return
	}

	ctx, usage := newUsageContext(r)
	res, err := s.records.Update(ctx, table, id, doc)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// DeleteRecord handles DELETE /v1/tables/{table}/records/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	table, id, ok := tableAndID(w, r)
	if !ok {
		return
	}

	if _, err := s.records.Delete(r.Context(), table, id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExecuteSQL handles POST /v1/sql. ?raw=true asks the backend for raw result sets.
func (s *Server) ExecuteSQL(w http.ResponseWriter, r *http.Request) {
	raw, err := boolQuery(r, "raw")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req SQLRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	res, err := s.records.Execute(r.Context(), req.Command, raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func tableAndID(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	table, err := pathParam("table", chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return "", "", false
	}
	id, err := pathParam("id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return "", "", false
	}
	return table, id, true
}
