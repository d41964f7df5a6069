package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrServiceUnavailable marks a missing credential or disabled collaborator.
// Callers see a generic 500; the cause is only logged.
var ErrServiceUnavailable = errors.New("service unavailable")

type AppError struct {
	StatusCode int
	Message    string
	Details    interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(statusCode int, err error, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Err: err}
}

func NewBadRequestError(err error, message string) *AppError {
	return NewAppError(http.StatusBadRequest, err, message)
}

func NewValidationError(details interface{}) *AppError {
	return &AppError{
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Details:    details,
	}
}

func NewUnauthorizedError(err error, message string) *AppError {
	return NewAppError(http.StatusUnauthorized, err, message)
}

func NewForbiddenError(err error, message string) *AppError {
	return NewAppError(http.StatusForbidden, err, message)
}

func NewNotFoundError(err error, message string) *AppError {
	return NewAppError(http.StatusNotFound, err, message)
}

func NewTooManyRequestsError(err error, message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, err, message)
}

func NewPaymentRequiredError(err error, message string) *AppError {
	return NewAppError(http.StatusPaymentRequired, err, message)
}

func NewUnprocessableError(err error, message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, err, message)
}

func NewInternalError(err error, message string) *AppError {
	return NewAppError(http.StatusInternalServerError, err, message)
}

// NewUpstreamError reports a failed provider call with a generic message.
func NewUpstreamError(err error, message string) *AppError {
	return NewAppError(http.StatusBadGateway, err, message)
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
