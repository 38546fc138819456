// ABOUTME: Error taxonomy and standardized error responses for the dashboard.
// ABOUTME: Classifies failures as network, auth or validation and renders JSON errors.

package errors

import (
	"encoding/json"
	"net/http"

	cerrors "github.com/cockroachdb/errors"
)

// Failure marks. Wrap with Network, Auth or Validation and test with errors.Is.
var (
	ErrNetwork    = cerrors.New("network failure")
	ErrAuth       = cerrors.New("authorization failure")
	ErrValidation = cerrors.New("validation failure")
)

// Network marks err as a request that could not complete.
func Network(err error, msg string) error {
	return cerrors.Mark(cerrors.Wrap(err, msg), ErrNetwork)
}

// Auth builds an authorization failure (missing or rejected token).
func Auth(format string, args ...any) error {
	return cerrors.Mark(cerrors.Newf(format, args...), ErrAuth)
}

// Validation builds a validation failure (rejected payload or illegal action).
func Validation(format string, args ...any) error {
	return cerrors.Mark(cerrors.Newf(format, args...), ErrValidation)
}

// IsNetwork reports whether err is a network failure.
func IsNetwork(err error) bool { return cerrors.Is(err, ErrNetwork) }

// IsAuth reports whether err is an authorization failure.
func IsAuth(err error) bool { return cerrors.Is(err, ErrAuth) }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return cerrors.Is(err, ErrValidation) }

// Kind names the failure class for logs and activity records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuth(err):
		return "auth"
	case IsValidation(err):
		return "validation"
	case IsNetwork(err):
		return "network"
	default:
		return "unknown"
	}
}

// ErrorResponse is the JSON error body returned by non-HTML endpoints.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes
const (
	ErrInvalidRequest     = "invalid_request"
	ErrValidationFailed   = "validation_failed"
	ErrNotFound           = "not_found"
	ErrUnauthorized       = "unauthorized"
	ErrForbidden          = "forbidden"
	ErrInternal           = "internal_error"
	ErrServiceUnavailable = "service_unavailable"
)

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// WriteErrorWithDetails writes a JSON error response with extra context.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Details: details,
	})
}

// WriteFailure maps a classified error to a JSON error response.
func WriteFailure(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	WriteError(w, status, code, Message(err))
}

// StatusFor maps a failure class to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case IsAuth(err):
		return http.StatusUnauthorized, ErrUnauthorized
	case IsValidation(err):
		return http.StatusUnprocessableEntity, ErrValidationFailed
	case IsNetwork(err):
		return http.StatusBadGateway, ErrServiceUnavailable
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}

// Message returns the user-facing text for a failure. Stack traces and
// marks are carried by the error value but never printed by Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}
