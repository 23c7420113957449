// Package apierrors defines the command server's structured error
// response shape: an ErrorCode/APIError/WriteError pattern narrowed to
// the codes this command surface actually returns.
package apierrors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode names one class of command-server failure.
type ErrorCode string

const (
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeConflict        ErrorCode = "CONFLICT"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// APIError is the JSON body every failed command-server request returns.
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// ErrorResponse wraps APIError for the wire format.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// NewAPIError builds an error stamped with the current time.
func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// WithRequestID attaches a request ID to the error.
func (e *APIError) WithRequestID(requestID string) *APIError {
	e.RequestID = requestID
	return e
}

// StatusCode maps the error's code to an HTTP status.
func (e *APIError) StatusCode() int {
	switch e.Code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WriteError writes err as the JSON error response, at its mapped status.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: *err})
}

func ValidationError(message string) *APIError { return NewAPIError(CodeValidationError, message) }

func NotFoundError(resource string) *APIError {
	return NewAPIError(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ConflictError(message string) *APIError { return NewAPIError(CodeConflict, message) }

func InternalError(message string) *APIError { return NewAPIError(CodeInternalError, message) }
