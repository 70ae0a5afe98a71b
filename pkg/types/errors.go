package types

import "fmt"

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
)

// HealNestError represents a structured error in the HealNest backend
type HealNestError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *HealNestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *HealNestError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *HealNestError {
	return &HealNestError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *HealNestError {
	return &HealNestError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error (invalid state transition,
// precondition failed at the store).
func NewConflictError(code, message string) *HealNestError {
	return &HealNestError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *HealNestError {
	return &HealNestError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewExternalError creates a new error for a failed third-party call
func NewExternalError(code, message string, cause error) *HealNestError {
	return &HealNestError{
		Type:    ErrorTypeExternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error codes
const (
	CodeMissingFields        = "MISSING_FIELDS"
	CodeAppointmentNotFound  = "APPOINTMENT_NOT_FOUND"
	CodeInvalidTransition    = "INVALID_STATUS_TRANSITION"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeStoreFailure         = "STORE_FAILURE"
	CodeMalformedPayload     = "MALFORMED_PAYLOAD"
	CodeNotParticipant       = "NOT_A_PARTICIPANT"
	CodeTokenInvalid         = "TOKEN_INVALID"
	CodeCodeExpired          = "VERIFICATION_CODE_EXPIRED"
	CodeInferenceUnavailable = "INFERENCE_UNAVAILABLE"
)
