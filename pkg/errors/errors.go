package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the storefront error taxonomy.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrOutOfStock    = errors.New("out of stock")
	ErrUnauthorized  = errors.New("authentication required")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrGateway       = errors.New("gateway error")
	ErrPartialCommit = errors.New("partial order commit")
	ErrInternal      = errors.New("internal error")
)

// AppError is a structured application error with an HTTP status mapping.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error for a single-message input problem.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Validation creates a 400 error carrying per-field messages so the
// presentation layer can surface them inline.
func Validation(fields map[string]string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed",
		Fields:  fields,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// OutOfStock creates a 409 error reporting how many units remain available.
func OutOfStock(productID int64, available int) *AppError {
	return &AppError{
		Code:    "OUT_OF_STOCK",
		Message: fmt.Sprintf("product %d has only %d unit(s) available", productID, available),
		Status:  http.StatusConflict,
		Err:     ErrOutOfStock,
	}
}

// AuthenticationRequired creates a 401 error.
func AuthenticationRequired(message string) *AppError {
	return &AppError{
		Code:    "AUTHENTICATION_REQUIRED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Gateway creates a 502 error for a failed call to an external collaborator
// (inventory source, address store, payment processor).
func Gateway(collaborator string, err error) *AppError {
	return &AppError{
		Code:    "GATEWAY_ERROR",
		Message: fmt.Sprintf("%s is unavailable, please retry", collaborator),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrGateway, err),
	}
}

// PartialCommit creates an error for an order that was durably recorded but
// whose follow-up writes (line items, address persistence) failed. The order
// remains valid; the failure is reported for manual reconciliation.
func PartialCommit(orderID string, err error) *AppError {
	return &AppError{
		Code:    "PARTIAL_COMMIT",
		Message: fmt.Sprintf("order %s was placed but some records need repair", orderID),
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrPartialCommit, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
