// Package response writes JSON bodies and maps domain errors onto HTTP
// status codes so every service reports failures the same way.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	"github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/pkg/request"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// MsgInvalidCredentials is the only message a failed login ever produces.
const MsgInvalidCredentials = "Credentials are not valid."

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, message, code string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func WriteErrorWithDetails(w http.ResponseWriter, status int, message, code string, details any) {
	WriteJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

// Error translates err into a status code and body. Unrecognized errors
// are logged and reported as 500 without exposing their text.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *request.ValidationError
		merr *request.MalformedError
	)
	switch {
	case errors.As(err, &verr):
		WriteErrorWithDetails(w, http.StatusBadRequest, "Validation failed", CodeInvalidInput, verr.Fields)
	case errors.As(err, &merr):
		BadRequest(w, merr.Error())
	case errors.Is(err, auth.ErrUnauthorizedCredentials):
		Unauthorized(w, MsgInvalidCredentials)
	case errors.Is(err, auth.ErrInvalidToken):
		WriteError(w, http.StatusUnauthorized, "Invalid or expired session", CodeInvalidToken)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(w, "Document not found")
	case errors.Is(err, repository.ErrConstraintViolation):
		Conflict(w, "Document conflicts with an existing one")
	case errors.Is(err, repository.ErrStoreUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable", CodeServiceUnavailable)
	default:
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		InternalError(w, "Internal server error")
	}
}
