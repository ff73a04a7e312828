package http

import (
	"fmt"
	"net/http"
)

// Error codes returned in the response envelope.
const (
	CodeBadRequest      = "ERR_BAD_REQUEST"
	CodeInvalidDate     = "ERR_INVALID_DATE"
	CodeFutureDate      = "ERR_FUTURE_DATE"
	CodeDataUnavailable = "ERR_DATA_UNAVAILABLE"
	CodeRateLimited     = "ERR_RATE_LIMITED"
	CodeInternal        = "ERR_INTERNAL"
)

// AppError is an error the API can render, carrying its HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
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

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithError attaches the cause; it is logged, never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// FieldError is a 400 tied to one request parameter.
func FieldError(code, field, message string) *AppError {
	return NewAppError(code, field, message, http.StatusBadRequest)
}

// UnavailableError is the 503 returned when upstream data cannot be loaded.
func UnavailableError(message string) *AppError {
	return NewAppError(CodeDataUnavailable, "", message, http.StatusServiceUnavailable)
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
