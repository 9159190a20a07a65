package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error represents a typed domain error carrying field-level context.
type Error struct {
	Code    string            `json:"code"`
	Field   string            `json:"field,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, e.fieldSummary())
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// New creates a new Error instance.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidName        = New("INVALID_NAME", "invalid name")
	ErrInvalidSubjectName = New("INVALID_SUBJECT_NAME", "invalid subject name")
	ErrDuplicateSubject   = New("DUPLICATE_SUBJECT", "subject already recorded for student")
	ErrInvalidScore       = New("INVALID_SCORE", "score must be a number")
	ErrScoreOutOfRange    = New("SCORE_OUT_OF_RANGE", "score out of range")
	ErrInvalidSettings    = New("INVALID_SETTINGS", "invalid school settings")
	ErrValidation         = New("VALIDATION_ERROR", "validation failed")
	ErrNotFound           = New("NOT_FOUND", "resource not found")
	ErrLocked             = New("LOCKED", "too many failed attempts, application locked")
	ErrInvalidPIN         = New("INVALID_PIN", "incorrect PIN")
	ErrInternal           = New("INTERNAL_ERROR", "internal error")
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
	return Wrap(err, ErrInternal.Code, ErrInternal.Message)
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
	if err.Fields != nil {
		clone.Fields = make(map[string]string, len(err.Fields))
		for k, v := range err.Fields {
			clone.Fields[k] = v
		}
	}
	return &clone
}

// WithField clones err and pins it to the named input field.
func WithField(err *Error, field, message string) *Error {
	clone := Clone(err, message)
	if clone != nil {
		clone.Field = field
	}
	return clone
}

// WithFields clones err and attaches per-field messages.
func WithFields(err *Error, fields map[string]string) *Error {
	clone := Clone(err, "")
	if clone != nil {
		clone.Fields = fields
	}
	return clone
}
