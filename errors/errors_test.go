package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyErrno(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		want  NetworkError
	}{
		{syscall.EACCES, NetworkErrorAccess},
		{syscall.EADDRINUSE, NetworkErrorAddressInUse},
		{syscall.EBADF, NetworkErrorInvalidDescriptor},
		{syscall.ENOTSOCK, NetworkErrorNotSocket},
		{syscall.EADDRNOTAVAIL, NetworkErrorAddressUnavailable},
		{syscall.ECONNREFUSED, NetworkErrorConnectionRefused},
		{syscall.ENETUNREACH, NetworkErrorNetworkUnreachable},
		{syscall.EHOSTUNREACH, NetworkErrorHostUnreachable},
		{syscall.ETIMEDOUT, NetworkErrorTimedOut},
		{syscall.ECONNRESET, NetworkErrorConnectionReset},
		{syscall.EPIPE, NetworkErrorBrokenPipe},
		{syscall.EMFILE, NetworkErrorTooManyFiles},
	}

	for _, tt := range tests {
		if got := ClassifyErrno(tt.errno); got != tt.want {
			t.Errorf("ClassifyErrno(%v) = %v, want %v", tt.errno, got, tt.want)
		}
	}

	wrapped := fmt.Errorf("connect: %w", syscall.ECONNREFUSED)
	if got := ClassifyErrno(wrapped); got != NetworkErrorConnectionRefused {
		t.Errorf("Expected wrapped errno to classify as refused, got %v", got)
	}

	if got := ClassifyErrno(stderrors.New("plain")); got != NetworkErrorUnknown {
		t.Errorf("Expected NetworkErrorUnknown for non-errno error, got %v", got)
	}
}

func TestFromErrno(t *testing.T) {
	if FromErrno("bind", nil) != nil {
		t.Fatal("Expected nil for nil error")
	}

	err := FromErrno("bind", syscall.EADDRINUSE)
	if err.Type != ErrorNetwork {
		t.Errorf("Expected ErrorNetwork, got %v", err.Type)
	}
	if err.NetworkErr != NetworkErrorAddressInUse {
		t.Errorf("Expected NetworkErrorAddressInUse, got %v", err.NetworkErr)
	}
	if !stderrors.Is(err, syscall.EADDRINUSE) {
		t.Error("Expected the errno to stay reachable through Unwrap")
	}

	original := NewConnectionClosedError("recv", "peer closed")
	if got := FromErrno("recv", original); got != original {
		t.Error("Expected *Error values to pass through unchanged")
	}
}

func TestError_Is(t *testing.T) {
	closed := NewConnectionClosedError("recv", "connection closed by peer")
	if !stderrors.Is(closed, ErrConnectionClosed) {
		t.Error("Expected connection closed error to match ErrConnectionClosed")
	}
	if stderrors.Is(closed, ErrNetwork) {
		t.Error("Connection closed error should not match ErrNetwork")
	}
	if !IsConnectionClosed(fmt.Errorf("loop: %w", closed)) {
		t.Error("Expected IsConnectionClosed to see through wrapping")
	}

	refused := NewNetworkError(NetworkErrorConnectionRefused, "connect", "", nil)
	if !stderrors.Is(refused, ErrNetwork) {
		t.Error("Expected refused error to match ErrNetwork")
	}
	if !stderrors.Is(refused, &Error{Type: ErrorNetwork, NetworkErr: NetworkErrorConnectionRefused}) {
		t.Error("Expected refused error to match its own kind")
	}
	if stderrors.Is(refused, &Error{Type: ErrorNetwork, NetworkErr: NetworkErrorTimedOut}) {
		t.Error("Refused error should not match the timed out kind")
	}
	if KindOf(refused) != NetworkErrorConnectionRefused {
		t.Errorf("KindOf = %v", KindOf(refused))
	}
	if KindOf(closed) != NetworkErrorNone {
		t.Errorf("KindOf on a non-network error = %v", KindOf(closed))
	}
}

func TestError_Message(t *testing.T) {
	err := NewNetworkError(NetworkErrorAddressInUse, "bind", "port 8080", syscall.EADDRINUSE)
	msg := err.Error()
	for _, part := range []string{"Network error", "address in use", "bind", "port 8080", "caused by"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Expected %q in %q", part, msg)
		}
	}

	var nilErr *Error
	if nilErr.Error() != "no error" {
		t.Errorf("Unexpected nil message %q", nilErr.Error())
	}
}
