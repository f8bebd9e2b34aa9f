package errors

import (
	"errors"
	"fmt"
)

// Code classifies engine errors into the observable set surfaced to callers.
type Code string

const (
	CodeInvalidAddress        Code = "InvalidAddress"
	CodeInvalidEnrichment     Code = "InvalidEnrichment"
	CodeProviderEmpty         Code = "ProviderEmpty"
	CodeNoProvider            Code = "NoProvider"
	CodeBigBangFailed         Code = "BigBangFailed"
	CodeCycleFailed           Code = "CycleFailed"
	CodeUnfilledSlot          Code = "UnfilledSlot"
	CodeUnknownRealm          Code = "UnknownRealm"
	CodeIndexMismatch         Code = "IndexMismatch"
	CodeReplayValidationError Code = "ReplayValidationError"
	CodeInvalidConfig         Code = "InvalidConfig"
)

// Error is a classified engine error. Callers branch on Code; the wrapped
// error keeps the original cause reachable through errors.Is/As.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. A nil err returns nil.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the classification of err, or "" for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given classification.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
