//go:build linux

package poll

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"
)

// Waker wakes a Poll blocked in another goroutine. Each Wake produces a
// readable event carrying the waker's token.
type Waker struct {
	fd       int
	registry *Registry
}

// NewWaker creates a waker attached to r under token.
func NewWaker(r *Registry, token Token) (*Waker, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, os.NewSyscallError("eventfd", err)
	}
	if err := r.RegisterFd(fd, token, Readable); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Waker{fd: fd, registry: r}, nil
}

// Wake is safe to call from any goroutine.
func (w *Waker) Wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(w.fd, buf[:])
		switch err {
		case nil:
			return nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			// counter saturated; reset it so the next write signals again
			w.reset()
		default:
			return os.NewSyscallError("write", err)
		}
	}
}

func (w *Waker) reset() {
	var buf [8]byte
	unix.Read(w.fd, buf[:])
}

// Close detaches and closes the waker.
func (w *Waker) Close() error {
	w.registry.DeregisterFd(w.fd)
	return unix.Close(w.fd)
}
