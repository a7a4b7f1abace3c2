//go:build darwin || freebsd

package poll

import (
	"os"

	"golang.org/x/sys/unix"
)

// Waker wakes a Poll blocked in another goroutine. Each Wake produces a
// readable event carrying the waker's token.
type Waker struct {
	r, w     int
	registry *Registry
}

// NewWaker creates a waker attached to r under token.
func NewWaker(r *Registry, token Token) (*Waker, error) {
	p := make([]int, 2)
	if err := unix.Pipe(p); err != nil {
		return nil, os.NewSyscallError("pipe", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, os.NewSyscallError("fcntl", err)
		}
	}
	if err := r.RegisterFd(p[0], token, Readable); err != nil {
		unix.Close(p[0])
		unix.Close(p[1])
		return nil, err
	}
	return &Waker{r: p[0], w: p[1], registry: r}, nil
}

// Wake is safe to call from any goroutine.
func (w *Waker) Wake() error {
	for {
		_, err := unix.Write(w.w, []byte{1})
		switch err {
		case nil:
			return nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			w.reset()
		default:
			return os.NewSyscallError("write", err)
		}
	}
}

// reset drains the pipe so a following write produces a new edge.
func (w *Waker) reset() {
	var buf [512]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close detaches and closes the waker.
func (w *Waker) Close() error {
	w.registry.DeregisterFd(w.r)
	unix.Close(w.w)
	return unix.Close(w.r)
}
