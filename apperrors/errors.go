package apperrors

import (
	"fmt"
	"net/http"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeOwnership  = "OWNERSHIP_ERROR"
	CodeTransition = "TRANSITION_ERROR"
	CodeConflict   = "SCHEDULING_CONFLICT"
	CodeDependency = "DEPENDENCY_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// Conflict sub-reasons so callers can tell outside-hours from blacked-out
// from double-booked.
const (
	ReasonOutsideWindow = "outside_window"
	ReasonBlackedOut    = "blacked_out"
	ReasonOverlap       = "overlap"
)

// AppError is the application error carried across service boundaries and
// mapped onto an HTTP response at the handler layer.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func Validation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"resource": resource, "id": id},
	}
}

// Ownership is returned when the acting party is not the one a transition
// requires.
func Ownership(expectedParty, message string) *AppError {
	return &AppError{
		Code:       CodeOwnership,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]any{"expectedParty": expectedParty},
	}
}

// Transition is returned for an illegal status change, naming both the
// current and the attempted status.
func Transition(current, attempted string) *AppError {
	return &AppError{
		Code:       CodeTransition,
		Message:    fmt.Sprintf("cannot transition booking from %s to %s", current, attempted),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"current": current, "attempted": attempted},
	}
}

// Conflict is returned when a proposed instant cannot be booked. The reason
// is one of the Reason* constants.
func Conflict(reason, message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"reason": reason},
	}
}

// ConflictReason extracts the sub-reason from a conflict error, or "".
func ConflictReason(err error) string {
	app, ok := err.(*AppError)
	if !ok || app.Code != CodeConflict {
		return ""
	}
	reason, _ := app.Details["reason"].(string)
	return reason
}

// Dependency wraps a failure of a side-effect collaborator. Callers log it
// and continue; the primary state change stays authoritative.
func Dependency(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeDependency,
		Message:    fmt.Sprintf("%s failed", operation),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
