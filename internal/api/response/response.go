package response

import (
	"encoding/json"
	"net/http"

	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// Response represents a standard API response
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	json.NewEncoder(w).Encode(resp)
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, message any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{
		Success: false,
		Error:   message,
	}

	json.NewEncoder(w).Encode(resp)
}

// statusByCode maps service error codes to HTTP statuses. The mapping
// lives here so services stay transport-agnostic.
var statusByCode = map[domain.ErrorCode]int{
	domain.CodeValidation:      http.StatusBadRequest,
	domain.CodeSessionNotFound: http.StatusNotFound,
	domain.CodeForbidden:       http.StatusForbidden,
	domain.CodeThreadCreation:  http.StatusBadGateway,
	domain.CodeAssistantCall:   http.StatusBadGateway,
	domain.CodeRunFailed:       http.StatusBadGateway,
	domain.CodePersistence:     http.StatusInternalServerError,
	domain.CodeRateLimited:     http.StatusTooManyRequests,
	domain.CodeInternal:        http.StatusInternalServerError,
}

// FromError sends an error response with the status derived from the
// error's code.
func FromError(w http.ResponseWriter, err error) {
	status, ok := statusByCode[domain.CodeOf(err)]
	if !ok {
		status = http.StatusInternalServerError
	}
	Error(w, status, err.Error())
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message any) {
	Error(w, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(w http.ResponseWriter, message any) {
	Error(w, http.StatusForbidden, message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message any) {
	Error(w, http.StatusNotFound, message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}
