package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur during a scrape
type ErrorType string

const (
	ErrorTypeExtraction      ErrorType = "extraction"
	ErrorTypeInitialLoad     ErrorType = "initial_load"
	ErrorTypeAdapter         ErrorType = "adapter"
	ErrorTypeFilterParse     ErrorType = "filter_parse"
	ErrorTypeResourceRelease ErrorType = "resource_release"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeNoAccounts      ErrorType = "no_accounts"
	ErrorTypeConfig          ErrorType = "config"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Sentinels for errors.Is matching on type alone.
var (
	ErrInitialLoad     = &Error{Type: ErrorTypeInitialLoad}
	ErrAdapter         = &Error{Type: ErrorTypeAdapter}
	ErrAuth            = &Error{Type: ErrorTypeAuth}
	ErrNoAccounts      = &Error{Type: ErrorTypeNoAccounts}
	ErrResourceRelease = &Error{Type: ErrorTypeResourceRelease}
)

// Error represents a scrape error with type information
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

// New creates a typed error for the given operation.
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap attaches a type and operation to an underlying error. A nil err yields nil.
func Wrap(t ErrorType, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s error: %s", e.Type, msg)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Type, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeAdapter:
		return true
	case ErrorTypeInitialLoad, ErrorTypeAuth, ErrorTypeConfig, ErrorTypeNoAccounts:
		return false
	default:
		return false
	}
}
