package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInvalidState Code = "INVALID_STATE"
	CodeStorage      Code = "STORAGE"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func NotFound(msg string) error { return New(CodeNotFound, msg) }

func Forbidden(msg string) error { return New(CodeForbidden, msg) }

func InvalidState(msg string) error { return New(CodeInvalidState, msg) }

func Storage(msg string, cause error) error { return Wrap(CodeStorage, msg, cause) }

// CodeOf extracts the category from err, walking wrapped causes.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

func Is(err error, code Code) bool { return CodeOf(err) == code }
