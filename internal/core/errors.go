package core

import (
	"errors"
	"fmt"
)

// ExitCode classifies failures so the CLI can map each category to a
// distinct process exit status.
type ExitCode int

const (
	ExitSuccess       ExitCode = 0
	ExitGeneralError  ExitCode = 1
	ExitAuthError     ExitCode = 2
	ExitNetworkError  ExitCode = 3
	ExitNotFound      ExitCode = 4
	ExitInvalidInput  ExitCode = 5
	ExitDatabaseError ExitCode = 6
	ExitBrowserError  ExitCode = 7
)

func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitGeneralError:
		return "general_error"
	case ExitAuthError:
		return "auth_error"
	case ExitNetworkError:
		return "network_error"
	case ExitNotFound:
		return "not_found"
	case ExitInvalidInput:
		return "invalid_input"
	case ExitDatabaseError:
		return "database_error"
	case ExitBrowserError:
		return "browser_error"
	default:
		return "unknown"
	}
}

// Error is a failure tagged with the exit code callers should map it to.
// Payload-level problems never become an Error; only session, store, and
// browser failures that must abort the operation do.
type Error struct {
	Code    ExitCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewAuthError(message string, err error) *Error {
	return &Error{Code: ExitAuthError, Message: message, Err: err}
}

func NewNetworkError(message string, err error) *Error {
	return &Error{Code: ExitNetworkError, Message: message, Err: err}
}

func NewNotFoundError(message string, err error) *Error {
	return &Error{Code: ExitNotFound, Message: message, Err: err}
}

func NewInvalidInputError(message string, err error) *Error {
	return &Error{Code: ExitInvalidInput, Message: message, Err: err}
}

func NewDatabaseError(message string, err error) *Error {
	return &Error{Code: ExitDatabaseError, Message: message, Err: err}
}

func NewBrowserError(message string, err error) *Error {
	return &Error{Code: ExitBrowserError, Message: message, Err: err}
}

// ExitCodeFor extracts the exit code from an error chain. Untagged errors
// map to the general error code; nil maps to success.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ExitGeneralError
}
