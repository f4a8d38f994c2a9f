package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error. Status mirrors HTTP semantics so an
// outer surface can map it without a lookup table.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones of a predefined
// error still match it with errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the calendar core.
var (
	ErrValidation            = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrDuplicateEvent        = New("DUPLICATE_EVENT", http.StatusConflict, "event already exists")
	ErrNotFound              = New("NOT_FOUND", http.StatusNotFound, "event not found")
	ErrUnknownProperty       = New("UNKNOWN_PROPERTY", http.StatusBadRequest, "unknown property")
	ErrInvalidPropertyValue  = New("INVALID_PROPERTY_VALUE", http.StatusBadRequest, "invalid property value")
	ErrUnknownCalendar       = New("UNKNOWN_CALENDAR", http.StatusNotFound, "calendar not found")
	ErrDuplicateCalendarName = New("DUPLICATE_CALENDAR_NAME", http.StatusConflict, "calendar name already in use")
	ErrInvalidTimezone       = New("INVALID_TIMEZONE", http.StatusBadRequest, "invalid timezone")
	ErrInternal              = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal error")
	ErrCacheMiss             = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Clonef is Clone with a formatted message.
func Clonef(err *Error, format string, args ...interface{}) *Error {
	return Clone(err, fmt.Sprintf(format, args...))
}
