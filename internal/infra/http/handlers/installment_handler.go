package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/nivesh-crm/internal/infra/http/middleware"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

type InstallmentHandler struct {
	ledgerUC *usecase.FeeLedgerUseCase
}

func NewInstallmentHandler(ledgerUC *usecase.FeeLedgerUseCase) *InstallmentHandler {
	return &InstallmentHandler{ledgerUC: ledgerUC}
}

func recordLedger(op string, err error) {
	if err != nil {
		middleware.RecordLedgerMutation(op, usecase.ErrorCode(err))
		return
	}
	middleware.RecordLedgerMutation(op, "ok")
}

// List (GET /admin/leads/{id}/installments)
func (h *InstallmentHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.ledgerUC.ListInstallments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Add (POST /admin/leads/{id}/installments)
func (h *InstallmentHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input usecase.AddInstallmentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.LeadID = chi.URLParam(r, "id")

	res, err := h.ledgerUC.AddInstallment(r.Context(), input)
	recordLedger("add", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Update (PATCH /admin/installments/{id})
func (h *InstallmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateInstallmentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.ID = chi.URLParam(r, "id")

	res, err := h.ledgerUC.UpdateInstallment(r.Context(), input)
	recordLedger("update", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Delete (DELETE /admin/installments/{id})
func (h *InstallmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.ledgerUC.DeleteInstallment(r.Context(), chi.URLParam(r, "id"))
	recordLedger("delete", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
