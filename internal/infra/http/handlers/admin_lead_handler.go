package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/nivesh-crm/internal/infra/http/middleware"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

type AdminLeadHandler struct {
	upsertUC *usecase.UpsertLeadsUseCase
	searchUC *usecase.SearchLeadsUseCase
	adminUC  *usecase.LeadAdminUseCase
}

func NewAdminLeadHandler(upsertUC *usecase.UpsertLeadsUseCase, searchUC *usecase.SearchLeadsUseCase, adminUC *usecase.LeadAdminUseCase) *AdminLeadHandler {
	return &AdminLeadHandler{upsertUC: upsertUC, searchUC: searchUC, adminUC: adminUC}
}

// BulkUpsert (POST /admin/leads/bulk)
func (h *AdminLeadHandler) BulkUpsert(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpsertLeadsInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.upsertUC.Execute(r.Context(), input)
	if err != nil {
		middleware.RecordLeadBatch("failed", 0, 0, 0)
		writeError(w, err)
		return
	}

	middleware.RecordLeadBatch("committed", out.Inserted, out.Merged, len(out.Rejected))
	writeJSON(w, http.StatusOK, out)
}

// Search (GET /admin/leads)
func (h *AdminLeadHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := usecase.SearchLeadsInput{
		Query:     q.Get("q"),
		Status:    q.Get("status"),
		Source:    q.Get("source"),
		WebinarID: q.Get("webinar_id"),
		Category:  q.Get("category"),
	}

	var err error
	if v := q.Get("page"); v != "" {
		if input.Page, err = strconv.Atoi(v); err != nil {
			writeErrorCode(w, usecase.CodeInvalidFilter, "page must be a number")
			return
		}
	}
	if v := q.Get("page_size"); v != "" {
		if input.PageSize, err = strconv.Atoi(v); err != nil {
			writeErrorCode(w, usecase.CodeInvalidFilter, "page_size must be a number")
			return
		}
	}

	out, err := h.searchUC.Execute(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Stats (GET /admin/leads/stats)
func (h *AdminLeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminUC.DashboardStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminLeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.adminUC.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *AdminLeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.adminUC.UpdateLeadFields(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *AdminLeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.adminUC.DeleteLead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
