package errors

import (
	stderrors "errors"
	"syscall"
)

// ClassifyErrno maps an OS error code to a NetworkError kind.
func ClassifyErrno(err error) NetworkError {
	var errno syscall.Errno
	if !stderrors.As(err, &errno) {
		return NetworkErrorUnknown
	}

	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return NetworkErrorAccess
	case syscall.EADDRINUSE:
		return NetworkErrorAddressInUse
	case syscall.EBADF:
		return NetworkErrorInvalidDescriptor
	case syscall.EINVAL:
		return NetworkErrorInvalidArgument
	case syscall.ENOTSOCK:
		return NetworkErrorNotSocket
	case syscall.EADDRNOTAVAIL:
		return NetworkErrorAddressUnavailable
	case syscall.EFAULT:
		return NetworkErrorBadAddress
	case syscall.ECONNREFUSED:
		return NetworkErrorConnectionRefused
	case syscall.ENETUNREACH, syscall.ENETDOWN:
		return NetworkErrorNetworkUnreachable
	case syscall.EHOSTUNREACH:
		return NetworkErrorHostUnreachable
	case syscall.ETIMEDOUT:
		return NetworkErrorTimedOut
	case syscall.ECONNRESET, syscall.ECONNABORTED:
		return NetworkErrorConnectionReset
	case syscall.EPIPE:
		return NetworkErrorBrokenPipe
	case syscall.EMFILE, syscall.ENFILE:
		return NetworkErrorTooManyFiles
	case syscall.ENOBUFS, syscall.ENOMEM:
		return NetworkErrorNoBuffers
	default:
		return NetworkErrorUnknown
	}
}

// FromErrno wraps an OS error into a network *Error for the given operation.
// Errors that already are *Error values are returned unchanged.
func FromErrno(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	kind := ClassifyErrno(err)
	return NewNetworkError(kind, op, kind.String(), err)
}
