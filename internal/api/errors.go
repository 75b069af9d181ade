// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdobak/go-xerrors"

	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/logging"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// Op names the pipeline step that failed, when known.
	Op string `json:"op,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewForbiddenError creates a 403 error for operations disabled by config
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Status:  http.StatusForbidden,
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// FromError maps pipeline error kinds onto HTTP responses.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	out := &APIError{Message: err.Error()}
	var kindErr *interferometry.Error
	if errors.As(err, &kindErr) {
		out.Op = kindErr.Op
	}
	switch interferometry.KindOf(err) {
	case interferometry.KindValidation:
		out.Status, out.Code = http.StatusBadRequest, "VALIDATION_ERROR"
	case interferometry.KindResource:
		out.Status, out.Code = http.StatusNotFound, "RESOURCE_ERROR"
	case interferometry.KindComputation:
		out.Status, out.Code = http.StatusUnprocessableEntity, "COMPUTATION_ERROR"
	default:
		out.Status, out.Code = http.StatusInternalServerError, "INTERNAL_ERROR"
		out.Message = "an unexpected error occurred"
		out.Details = err.Error()
	}
	return out
}

// ErrorHandler returns the echo error handler.
// Usage: e.HTTPErrorHandler = api.ErrorHandler(log)
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = logging.Noop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		} else {
			apiErr = FromError(err)
		}

		if apiErr.Status >= http.StatusInternalServerError || apiErr.Code == "COMPUTATION_ERROR" {
			ctx := c.Request().Context()
			logging.FromContext(ctx, log).Error(ctx, "request failed",
				logging.String("path", c.Path()),
				logging.Int("status", apiErr.Status),
				logging.Any("error", xerrors.New(err)),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(apiErr.Status)
			return
		}
		_ = c.JSON(apiErr.Status, apiErr)
	}
}
