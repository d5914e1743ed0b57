//go:build linux

package transport

import (
	"github.com/iceber/iouring-go"
	"github.com/nczempin/asyncsock/errors"
)

const ringEntries = 32

// iouringDriver submits read/write requests through iceber/iouring-go and
// waits for their completion on a channel. Only the read and write preps
// install a resolver that yields the byte count, so send/recv are not used.
type iouringDriver struct {
	iour *iouring.IOURing
}

func newIOURingDriver() (Driver, error) {
	iour, err := iouring.New(ringEntries)
	if err != nil {
		return nil, errors.NewNetworkError(
			errors.NetworkErrorRingInit,
			"iouring",
			"failed to initialize io_uring",
			err,
		)
	}
	return &iouringDriver{iour: iour}, nil
}

func (d *iouringDriver) Send(fd int, buf []byte) (int, error) {
	ch := make(chan iouring.Result, 1)
	if _, err := d.iour.SubmitRequest(iouring.Write(fd, buf), ch); err != nil {
		return 0, errors.NewNetworkError(
			errors.NetworkErrorRingSubmit,
			"send",
			"failed to submit send request",
			err,
		)
	}

	result := <-ch
	return result.ReturnInt()
}

func (d *iouringDriver) Recv(fd int, buf []byte) (int, error) {
	ch := make(chan iouring.Result, 1)
	if _, err := d.iour.SubmitRequest(iouring.Read(fd, buf), ch); err != nil {
		return 0, errors.NewNetworkError(
			errors.NetworkErrorRingSubmit,
			"recv",
			"failed to submit recv request",
			err,
		)
	}

	result := <-ch
	return result.ReturnInt()
}

func (d *iouringDriver) Close() error {
	if d.iour == nil {
		return nil
	}
	err := d.iour.Close()
	d.iour = nil
	return err
}
