package transport

import (
	"fmt"

	"github.com/nczempin/asyncsock/errors"
)

const (
	// DefaultRecvSize is the initial receive buffer size and the default
	// read limit.
	DefaultRecvSize = 1024

	// MaxRecvSize caps how far a receive buffer may grow.
	MaxRecvSize = 64 << 20
)

// Receiver reads from a Socket into a buffer it owns and reuses across
// calls. The buffer grows when a read fills it and never shrinks.
// A Receiver must only be used from one goroutine at a time.
type Receiver struct {
	sock *Socket
	buf  []byte
}

// NewReceiver creates a Receiver for sock
func NewReceiver(sock *Socket) *Receiver {
	return &Receiver{sock: sock}
}

// Cap returns the current size of the receive buffer
func (r *Receiver) Cap() int {
	return len(r.buf)
}

// Recv waits up to timeout for data and returns a copy of at most maxBytes
// received bytes. An expired timeout yields an empty result and no error;
// a remote close yields a ConnectionClosed error.
func (r *Receiver) Recv(maxBytes int, timeout Timeout) ([]byte, error) {
	view, err := r.RecvUnsafe(maxBytes, timeout)
	if err != nil || len(view) == 0 {
		return nil, err
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// RecvString is Recv returning a string
func (r *Receiver) RecvString(maxBytes int, timeout Timeout) (string, error) {
	view, err := r.RecvUnsafe(maxBytes, timeout)
	return string(view), err
}

// RecvUnsafe is Recv without the copy: the result aliases the receive
// buffer and is only valid until the next call.
func (r *Receiver) RecvUnsafe(maxBytes int, timeout Timeout) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("maxBytes must be positive, got %d", maxBytes))
	}
	if maxBytes > MaxRecvSize {
		return nil, errors.NewAllocationError(
			fmt.Sprintf("receive buffer of %d bytes exceeds the limit of %d", maxBytes, MaxRecvSize),
			nil,
		)
	}
	if r.sock == nil || r.sock.IsClosed() {
		return nil, closedSocketError("recv")
	}

	if len(r.buf) == 0 {
		r.buf = make([]byte, min(DefaultRecvSize, maxBytes))
	}

	window := min(len(r.buf), maxBytes)
	n, err := r.sock.Recv(r.buf[:window], timeout)
	if err != nil || n == 0 {
		return nil, err
	}

	// The read filled the buffer: grow it and drain what is already queued.
	total := n
	for total == window && total < maxBytes {
		if err := r.grow(maxBytes); err != nil {
			return r.buf[:total], nil
		}
		window = min(len(r.buf), maxBytes)

		more, err := r.sock.Recv(r.buf[total:window], Instant)
		if err != nil || more == 0 {
			// A close or fault after data is reported by the next call.
			break
		}
		total += more
	}

	return r.buf[:total], nil
}

// grow doubles the buffer, bounded by limit, keeping its contents.
func (r *Receiver) grow(limit int) (err error) {
	size := min(2*len(r.buf), limit)
	if size <= len(r.buf) {
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			err = errors.NewAllocationError(fmt.Sprintf("failed to grow receive buffer to %d bytes", size), fmt.Errorf("%v", p))
		}
	}()

	grown := make([]byte, size)
	copy(grown, r.buf)
	r.buf = grown
	return nil
}
