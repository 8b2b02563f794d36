package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures by where they originate, matching how each
// one is recovered: transport errors reconnect, fetch errors fall back to
// zero-value state, parse errors drop the offending message, callback errors
// are contained at the dispatch boundary.
type ErrorCode string

const (
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	ErrCodeFetch     ErrorCode = "FETCH_ERROR"
	ErrCodeParse     ErrorCode = "PARSE_ERROR"
	ErrCodeCallback  ErrorCode = "CALLBACK_ERROR"
	ErrCodeInternal  ErrorCode = "INTERNAL_ERROR"
)

// AppError carries an error code plus optional structured context.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

func NewTransportError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeTransport, Message: message, Cause: cause}
}

func NewFetchError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeFetch, Message: message, Cause: cause}
}

func NewParseError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeParse, Message: message, Cause: cause}
}

func NewCallbackError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeCallback, Message: message, Cause: cause}
}

// Code extracts the ErrorCode from an error chain, or ErrCodeInternal when
// the chain contains no AppError.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return Code(err) == code
}
