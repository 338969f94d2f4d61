package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"jobqueue-service/internal/core/domain"
	"jobqueue-service/internal/pkg/utils"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"

	// Server errors (5xx)
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeCapacityExhausted ErrorCode = "CAPACITY_EXHAUSTED"
	ErrCodeDuplicateID       ErrorCode = "DUPLICATE_ID"
)

// APIError is the error envelope returned on every non-2xx response
type APIError struct {
	Status    int                    `json:"status"`
	Kind      string                 `json:"kind"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	ErrorID   string                 `json:"error_id"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`

	Code ErrorCode `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new API error
func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{
		Status:    httpStatus(code),
		Kind:      "error",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ErrorID:   utils.GenerateShortID(),
		Code:      code,
	}
}

// WithRequestID attaches the request correlation id
func (e *APIError) WithRequestID(requestID string) *APIError {
	e.RequestID = requestID
	return e
}

// WithDetails attaches structured details for the client
func (e *APIError) WithDetails(details map[string]interface{}) *APIError {
	e.Details = details
	return e
}

func httpStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeCapacityExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func InvalidArgument(message string) *APIError {
	return NewAPIError(ErrCodeInvalidArgument, message)
}

func NotFound(message string) *APIError {
	return NewAPIError(ErrCodeNotFound, message)
}

func InternalError(message string) *APIError {
	return NewAPIError(ErrCodeInternal, message)
}

func CapacityExhausted(message string) *APIError {
	return NewAPIError(ErrCodeCapacityExhausted, message)
}

// FromError maps core errors onto the envelope. Unknown errors become
// internal errors with no executor-specific detail exposed.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return NotFound("Job not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		return InvalidArgument(err.Error())
	case errors.Is(err, domain.ErrPoolExhausted):
		return CapacityExhausted("No worker capacity available")
	case errors.Is(err, domain.ErrDuplicateID):
		return NewAPIError(ErrCodeDuplicateID, "Job id collision")
	default:
		return InternalError("An unexpected error occurred")
	}
}

// IsAPIError checks if an error is an APIError
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
