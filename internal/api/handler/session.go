package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hyunwoo-kim/docchat/internal/api/middleware"
	"github.com/hyunwoo-kim/docchat/internal/api/response"
	"github.com/hyunwoo-kim/docchat/internal/service"
)

// SessionHandler handles session management endpoints
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// List returns the user's sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit := 20
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

	sessions, err := h.sessionService.List(r.Context(), userID, limit, offset)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get returns one session with its history
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.params(w, r)
	if !ok {
		return
	}

	detail, err := h.sessionService.Get(r.Context(), userID, sessionID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, detail)
}

// Rename updates a session's title
func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.params(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.sessionService.Rename(r.Context(), userID, sessionID, req.Title); err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]string{
		"session_id": sessionID.String(),
		"title":      req.Title,
	})
}

// Delete removes a session and its messages
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.params(w, r)
	if !ok {
		return
	}

	if err := h.sessionService.Delete(r.Context(), userID, sessionID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

var exportContentTypes = map[string]string{
	service.ExportMarkdown: "text/markdown; charset=utf-8",
	service.ExportText:     "text/plain; charset=utf-8",
	service.ExportJSON:     "application/json; charset=utf-8",
}

// Export returns the session transcript in the format given by the
// format query parameter (json, txt or md; default md)
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := h.params(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.ExportMarkdown
	}

	transcript, err := h.sessionService.Export(r.Context(), userID, sessionID, format)
	if err != nil {
		response.FromError(w, err)
		return
	}

	w.Header().Set("Content-Type", exportContentTypes[format])
	w.Header().Set("Content-Disposition", "attachment; filename=\"session-"+sessionID.String()+"."+format+"\"")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(transcript))
}

func (h *SessionHandler) params(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, sessionID, true
}
