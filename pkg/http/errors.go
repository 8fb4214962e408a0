package http

import (
	"fmt"
	"net/http"
)

// Error codes returned in the API envelope.
const (
	CodeNotFound    = "ERR_NOT_FOUND"
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeUpstream    = "ERR_UPSTREAM"
	CodeInternal    = "ERR_INTERNAL"
)

// AppError is an error the API reports to the client with its HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Status: status}
}

// WithParam attaches a detail the client can act on, e.g. force=false.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError keeps the cause for logs; it is never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, "", message, http.StatusNotFound)
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return NewAppError(CodeBadRequest, "", fmt.Sprintf(format, a...), http.StatusBadRequest)
}

// RateLimitedError is returned when a client triggers scans too often.
func RateLimitedError(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}

// UpstreamError reports that a market data provider failed for field.
func UpstreamError(field, message string) *AppError {
	return NewAppError(CodeUpstream, field, message, http.StatusBadGateway)
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
