package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorNetwork
	ErrorConnectionClosed
	ErrorInvalidRequest
	ErrorAllocation
	ErrorInvalidArgument
)

func (t ErrorType) String() string {
	switch t {
	case ErrorNone:
		return "No error"
	case ErrorNetwork:
		return "Network error"
	case ErrorConnectionClosed:
		return "Connection closed"
	case ErrorInvalidRequest:
		return "Invalid request"
	case ErrorAllocation:
		return "Allocation failure"
	case ErrorInvalidArgument:
		return "Invalid argument"
	default:
		return "Unknown error"
	}
}

// NetworkError represents the OS-level cause of a network error
type NetworkError int

const (
	NetworkErrorNone NetworkError = iota
	NetworkErrorAccess
	NetworkErrorAddressInUse
	NetworkErrorInvalidDescriptor
	NetworkErrorInvalidArgument
	NetworkErrorNotSocket
	NetworkErrorAddressUnavailable
	NetworkErrorBadAddress
	NetworkErrorConnectionRefused
	NetworkErrorNetworkUnreachable
	NetworkErrorHostUnreachable
	NetworkErrorTimedOut
	NetworkErrorConnectionReset
	NetworkErrorBrokenPipe
	NetworkErrorTooManyFiles
	NetworkErrorNoBuffers
	NetworkErrorResolve
	NetworkErrorRingInit
	NetworkErrorRingSubmit
	NetworkErrorUnknown
)

func (e NetworkError) String() string {
	switch e {
	case NetworkErrorNone:
		return "none"
	case NetworkErrorAccess:
		return "access error"
	case NetworkErrorAddressInUse:
		return "address in use"
	case NetworkErrorInvalidDescriptor:
		return "socket is not a valid descriptor"
	case NetworkErrorInvalidArgument:
		return "invalid argument"
	case NetworkErrorNotSocket:
		return "descriptor is not a socket"
	case NetworkErrorAddressUnavailable:
		return "address not available"
	case NetworkErrorBadAddress:
		return "bad memory access"
	case NetworkErrorConnectionRefused:
		return "connection refused"
	case NetworkErrorNetworkUnreachable:
		return "network unreachable"
	case NetworkErrorHostUnreachable:
		return "host unreachable"
	case NetworkErrorTimedOut:
		return "timed out"
	case NetworkErrorConnectionReset:
		return "connection reset by peer"
	case NetworkErrorBrokenPipe:
		return "broken pipe"
	case NetworkErrorTooManyFiles:
		return "too many open files"
	case NetworkErrorNoBuffers:
		return "no buffer space available"
	case NetworkErrorResolve:
		return "address resolution failed"
	case NetworkErrorRingInit:
		return "io_uring initialization failed"
	case NetworkErrorRingSubmit:
		return "io_uring submission failed"
	default:
		return fmt.Sprintf("unknown network error (%d)", int(e))
	}
}

// Error is the error type returned by every package of this module
type Error struct {
	Type          ErrorType
	NetworkErr    NetworkError
	Op            string
	Message       string
	UnderlyingErr error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "no error"
	}

	typeStr := e.Type.String()
	if e.Type == ErrorNetwork && e.NetworkErr != NetworkErrorNone {
		typeStr = fmt.Sprintf("%s (%s)", typeStr, e.NetworkErr)
	}

	if e.Op != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Op)
	}

	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *Error) Unwrap() error {
	return e.UnderlyingErr
}

// Is reports whether target is an *Error of the same category. A target
// with a NetworkErr set additionally has to match the network error kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Type != e.Type {
		return false
	}
	return t.NetworkErr == NetworkErrorNone || t.NetworkErr == e.NetworkErr
}

// Sentinels for use with errors.Is.
var (
	ErrNetwork          = &Error{Type: ErrorNetwork}
	ErrConnectionClosed = &Error{Type: ErrorConnectionClosed}
	ErrInvalidRequest   = &Error{Type: ErrorInvalidRequest}
	ErrAllocation       = &Error{Type: ErrorAllocation}
	ErrInvalidArgument  = &Error{Type: ErrorInvalidArgument}
)

// NewNetworkError creates a new network error
func NewNetworkError(kind NetworkError, op, message string, underlying error) *Error {
	return &Error{
		Type:          ErrorNetwork,
		NetworkErr:    kind,
		Op:            op,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewConnectionClosedError creates an error signalling that the peer ended the stream
func NewConnectionClosedError(op, message string) *Error {
	return &Error{
		Type:    ErrorConnectionClosed,
		Op:      op,
		Message: message,
	}
}

// NewInvalidRequestError creates a new malformed request error
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrorInvalidRequest,
		Message: message,
	}
}

// NewAllocationError creates a new buffer allocation error
func NewAllocationError(message string, underlying error) *Error {
	return &Error{
		Type:          ErrorAllocation,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string) *Error {
	return &Error{
		Type:    ErrorInvalidArgument,
		Message: message,
	}
}

// IsConnectionClosed reports whether err signals a remote close.
func IsConnectionClosed(err error) bool {
	return stderrors.Is(err, ErrConnectionClosed)
}

// KindOf returns the network error kind carried by err, or NetworkErrorNone.
func KindOf(err error) NetworkError {
	var e *Error
	if stderrors.As(err, &e) && e.Type == ErrorNetwork {
		return e.NetworkErr
	}
	return NetworkErrorNone
}
