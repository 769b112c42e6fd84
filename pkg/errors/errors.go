package errors

import (
	"errors"
)

type Code string

const (
	CodeConfiguration      Code = "configuration"
	CodeInvalidSpec        Code = "invalid_spec"
	CodeUnknownPrivilege   Code = "unknown_privilege"
	CodeNotFound           Code = "not_found"
	CodeCreationFailed     Code = "creation_failed"
	CodeSessionStartFailed Code = "session_start_failed"
	CodeUpdateFailed       Code = "update_failed"
	CodeDeleteFailed       Code = "delete_failed"
	CodeTransport          Code = "transport"
)

const (
	CodeUnknown Code = "unknown"
)

var ErrMissingPlatform = errors.New("apptokens: platform client is required")

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsCode(err error, code Code) bool {
	var typed *Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code == code
}

// CodeOf reports the taxonomy code carried by err, or CodeUnknown when the
// error did not originate from this module.
func CodeOf(err error) Code {
	var typed *Error
	if !errors.As(err, &typed) {
		return CodeUnknown
	}
	return typed.Code
}
