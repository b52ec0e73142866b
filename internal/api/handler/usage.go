package handler

import (
	"net/http"
	"strconv"

	"github.com/hyunwoo-kim/docchat/internal/api/middleware"
	"github.com/hyunwoo-kim/docchat/internal/api/response"
	"github.com/hyunwoo-kim/docchat/internal/service"
)

// UsageHandler handles usage reporting endpoints
type UsageHandler struct {
	usageService *service.UsageService
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usageService *service.UsageService) *UsageHandler {
	return &UsageHandler{usageService: usageService}
}

// Summary returns the user's usage over the trailing days window
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			days = v
		}
	}

	summary, err := h.usageService.Summary(r.Context(), userID, days)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, summary)
}

// History returns the user's individual usage records, newest first
func (h *UsageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit := 50
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	records, err := h.usageService.History(r.Context(), userID, limit, offset)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

// Quota returns spend against the configured limits
func (h *UsageHandler) Quota(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	quota, err := h.usageService.Quota(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, quota)
}
