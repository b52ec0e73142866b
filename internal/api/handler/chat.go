package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/hyunwoo-kim/docchat/internal/api/middleware"
	"github.com/hyunwoo-kim/docchat/internal/api/response"
	"github.com/hyunwoo-kim/docchat/internal/domain"
	"github.com/hyunwoo-kim/docchat/internal/service"
)

var validate = validator.New()

// ChatHandler handles chat endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Send processes one chat message. The envelope always carries the
// session ID; assistant failures come back as a 200 with success=false
// so clients keep the session.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req service.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userEmail, _ := middleware.GetUserEmail(r.Context())
	log.Info().
		Str("user_id", userID.String()).
		Str("user_email", userEmail).
		Str("session_id", req.SessionID).
		Msg("Processing chat message")

	result, err := h.chatService.ProcessMessage(r.Context(), &userID, req)
	if err != nil {
		if code := domain.CodeOf(err); code == domain.CodeForbidden {
			response.Forbidden(w, err.Error())
			return
		}
		response.FromError(w, err)
		return
	}

	response.OK(w, result)
}
