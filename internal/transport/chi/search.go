package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/mantadmin/internal/domain"
	recommenduc "github.com/kailas-cloud/mantadmin/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/mantadmin/internal/usecase/search"
)

// Search handles POST /v1/tables/{table}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam("table", chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req SearchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if req.Intent != "" && !req.Intent.IsValid() {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "unknown search intent: "+string(req.Intent))
		return
	}

	ctx, usage := newUsageContext(r)
	res, err := s.search.Search(ctx, searchRequestFromAPI(table, req))
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Recommend handles POST /v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommenduc.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx, usage := newUsageContext(r)
	resp, err := s.recommend.Recommend(ctx, req)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func searchRequestFromAPI(table string, req SearchRequest) searchuc.Request {
	out := searchuc.Request{
		Intent:              req.Intent,
		Table:               table,
		Query:               req.Query,
		Fuzzy:               req.Fuzzy,
		Filters:             req.Filters,
		Sorters:             req.Sorters,
		Facets:              req.Facets,
		AppliedFacetFilters: req.AppliedFacetFilters,
	}
	if req.Pagination != nil {
		out.Pagination = *req.Pagination
	}
	if v := req.Vector; v != nil {
		out.VectorColumn = v.Column
		out.Vector = v.Values
		out.VectorInput = v.Input
		out.K = v.K
		out.EF = v.EF
		out.HybridQuery = v.HybridQuery
	}
	return out
}

func newUsageContext(r *http.Request) (context.Context, *domain.EmbeddingUsage) {
	return domain.NewContextWithUsage(r.Context())
}
