package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	usecase.CodeInvalidJSON:         http.StatusBadRequest,
	usecase.CodeInvalidFilter:       http.StatusBadRequest,
	usecase.CodeInvalidIdentity:     http.StatusUnprocessableEntity,
	usecase.CodeInvalidAmount:       http.StatusUnprocessableEntity,
	usecase.CodeInvalidStatus:       http.StatusUnprocessableEntity,
	usecase.CodeValidation:          http.StatusUnprocessableEntity,
	usecase.CodeBatchTooLarge:       http.StatusRequestEntityTooLarge,
	usecase.CodeNotFound:            http.StatusNotFound,
	usecase.CodeConflictWriteFailed: http.StatusConflict,
	usecase.CodeConstraintViolation: http.StatusConflict,
	usecase.CodeRateLimited:         http.StatusTooManyRequests,
	usecase.CodeInternal:            http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErrorCode(w http.ResponseWriter, code, message string) {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeError renders any use case error in the standard envelope. Internal
// errors never leak their message.
func writeError(w http.ResponseWriter, err error) {
	code := usecase.ErrorCode(err)
	msg := err.Error()
	if code == usecase.CodeInternal {
		msg = "internal error"
	}
	writeErrorCode(w, code, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorCode(w, usecase.CodeInvalidJSON, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
