package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/supportbot/internal/domain"
)

// UnavailableMessage is the only text a client sees for a 5xx response.
const UnavailableMessage = "the assistant is temporarily unavailable"

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeFetch, domain.ErrCodeUpstream, domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show a client for err. Client errors
// keep their domain message; server errors never leak internal detail.
func PublicMessage(err error) string {
	if DomainErrorToHTTP(err) >= http.StatusInternalServerError {
		return UnavailableMessage
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// HandleError writes the status and client-safe message for err.
func HandleError(w http.ResponseWriter, err error) {
	Error(w, DomainErrorToHTTP(err), PublicMessage(err))
}
