package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LeadHandler serves the public registration form.
type LeadHandler struct {
	registerUC  *usecase.RegisterLeadUseCase
	rateLimiter RateLimiter
	logger      *zap.Logger
}

func NewLeadHandler(registerUC *usecase.RegisterLeadUseCase, limiter RateLimiter, logger *zap.Logger) *LeadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadHandler{
		registerUC:  registerUC,
		rateLimiter: limiter,
		logger:      logger,
	}
}

type RegisterLeadResponse struct {
	Success bool                        `json:"success"`
	Lead    *usecase.RegisterLeadOutput `json:"lead,omitempty"`
}

func (h *LeadHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.rateLimiter != nil {
		allowed, err := h.rateLimiter.Allow(ctx, getClientIP(r))
		if err != nil {
			// Fail open: a limiter outage must not block registrations.
			h.logger.Warn("rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			writeErrorCode(w, usecase.CodeRateLimited, "too many requests, please try again later")
			return
		}
	}

	var input usecase.RegisterLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.registerUC.Execute(ctx, input)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if out.Inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, RegisterLeadResponse{Success: true, Lead: out})
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
