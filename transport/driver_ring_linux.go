//go:build linux

package transport

import (
	"sync"

	"github.com/godzie44/go-uring/uring"
	"github.com/nczempin/asyncsock/errors"
)

// ringDriver drives godzie44/go-uring by hand: queue one SQE, submit, and
// wait for its CQE. A ring is not safe for concurrent use, so sends and
// receives each get a ring of their own; a send blocked on a full peer
// window never holds up the read loop.
type ringDriver struct {
	send *ringQueue
	recv *ringQueue
}

// ringQueue serializes the requests of one direction on one ring.
type ringQueue struct {
	mu   sync.Mutex
	ring *uring.Ring
}

func newRingDriver() (Driver, error) {
	send, err := uring.New(ringEntries)
	if err != nil {
		return nil, ringInitError(err)
	}
	recv, err := uring.New(ringEntries)
	if err != nil {
		send.Close()
		return nil, ringInitError(err)
	}
	return &ringDriver{send: &ringQueue{ring: send}, recv: &ringQueue{ring: recv}}, nil
}

func ringInitError(err error) error {
	return errors.NewNetworkError(
		errors.NetworkErrorRingInit,
		"ring",
		"failed to initialize io_uring",
		err,
	)
}

func (d *ringDriver) Send(fd int, buf []byte) (int, error) {
	return d.send.do("send", func(r *uring.Ring) error {
		return r.QueueSQE(uring.Write(uintptr(fd), buf, 0), 0, 0)
	})
}

func (d *ringDriver) Recv(fd int, buf []byte) (int, error) {
	return d.recv.do("recv", func(r *uring.Ring) error {
		return r.QueueSQE(uring.Read(uintptr(fd), buf, 0), 0, 0)
	})
}

func (q *ringQueue) do(op string, queue func(*uring.Ring) error) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ring == nil {
		return 0, errors.NewNetworkError(errors.NetworkErrorInvalidDescriptor, op, "ring closed", nil)
	}

	if err := queue(q.ring); err != nil {
		return 0, errors.NewNetworkError(
			errors.NetworkErrorRingSubmit,
			op,
			"failed to queue request",
			err,
		)
	}

	if _, err := q.ring.Submit(); err != nil {
		return 0, errors.NewNetworkError(
			errors.NetworkErrorRingSubmit,
			op,
			"failed to submit request",
			err,
		)
	}

	cqe, err := q.ring.WaitCQEvents(1)
	if err != nil {
		return 0, err
	}

	if err := cqe.Error(); err != nil {
		q.ring.SeenCQE(cqe)
		return 0, err
	}

	n := int(cqe.Res)
	q.ring.SeenCQE(cqe)
	return n, nil
}

func (q *ringQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ring != nil {
		q.ring.Close()
		q.ring = nil
	}
}

func (d *ringDriver) Close() error {
	d.send.close()
	d.recv.close()
	return nil
}
