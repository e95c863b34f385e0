package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

type WebinarHandler struct {
	uc *usecase.WebinarUseCase
}

func NewWebinarHandler(uc *usecase.WebinarUseCase) *WebinarHandler {
	return &WebinarHandler{uc: uc}
}

func (h *WebinarHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.uc.ListWebinars(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *WebinarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateWebinarInput
	if !decodeJSON(w, r, &input) {
		return
	}
	webinar, err := h.uc.CreateWebinar(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, webinar)
}

func (h *WebinarHandler) Get(w http.ResponseWriter, r *http.Request) {
	webinar, err := h.uc.GetWebinar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, webinar)
}

func (h *WebinarHandler) Active(w http.ResponseWriter, r *http.Request) {
	webinar, err := h.uc.ActiveWebinar(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, webinar)
}

func (h *WebinarHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.uc.UpdateWebinarStatus(r.Context(), chi.URLParam(r, "id"), body.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WebinarHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	out, err := h.uc.ListCourses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *WebinarHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateCourseInput
	if !decodeJSON(w, r, &input) {
		return
	}
	course, err := h.uc.CreateCourse(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}
