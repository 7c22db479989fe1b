package fs

import (
	"errors"
	"fmt"
)

// Error is the typed failure returned by every adapter operation.
//
// Raw native results (boolean false, negative descriptor, negated errno) are
// translated into an Error at the adapter boundary; call sites above the
// adapter never interpret native codes themselves.
type Error struct {
	// Code is the failure category
	Code ErrorCode

	// Op is the adapter operation that failed (e.g. "open", "delete")
	Op string

	// Path is the canonical path involved, if any
	Path string

	// Errno is the native code when the client reported one, 0 otherwise
	Errno int

	// Message is a human-readable description
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Errno != 0 {
		msg += fmt.Sprintf(" (errno %d)", e.Errno)
	}
	return msg
}

// ErrorCode is the category of an adapter failure.
type ErrorCode int

const (
	// ErrNotInitialized indicates an operation was attempted while the
	// filesystem was not in the Ready state
	ErrNotInitialized ErrorCode = iota

	// ErrConfiguration indicates the startup configuration was unusable
	// (e.g. no monitor address and no config-file flag)
	ErrConfiguration

	// ErrInitialization indicates the native client refused to start
	ErrInitialization

	// ErrNotFound indicates the path does not exist or cannot be accessed
	ErrNotFound

	// ErrAlreadyExists indicates a create without the overwrite flag hit
	// an existing file
	ErrAlreadyExists

	// ErrIsDirectory indicates a file operation hit a directory
	ErrIsDirectory

	// ErrNotEmpty indicates a non-recursive delete hit a directory
	ErrNotEmpty

	// ErrIllegalOperation indicates an operation the adapter refuses
	// outright (deleting the root directory)
	ErrIllegalOperation

	// ErrOperationFailed is the generic translation of a native
	// negative or false result with no more specific category
	ErrOperationFailed
)

// String returns the code name, for logs and metrics labels.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotInitialized:
		return "not_initialized"
	case ErrConfiguration:
		return "configuration"
	case ErrInitialization:
		return "initialization"
	case ErrNotFound:
		return "not_found"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrIsDirectory:
		return "is_directory"
	case ErrNotEmpty:
		return "not_empty"
	case ErrIllegalOperation:
		return "illegal_operation"
	case ErrOperationFailed:
		return "operation_failed"
	default:
		return "unknown"
	}
}

// CodeOf extracts the ErrorCode from err. The boolean is false when err is
// nil or not an adapter Error.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsCode reports whether err is an adapter Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// newError builds an Error without a native code.
func newError(code ErrorCode, op, path, message string) *Error {
	return &Error{Code: code, Op: op, Path: path, Message: message}
}

// newErrno builds an Error carrying the native code. errno is the value as
// reported (callers pass the negated return already flipped positive).
func newErrno(code ErrorCode, op, path, message string, errno int) *Error {
	return &Error{Code: code, Op: op, Path: path, Message: message, Errno: errno}
}
