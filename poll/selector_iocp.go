//go:build windows

package poll

import (
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Tag is the name of the readiness facility.
var Tag = "iocp"

// Operation is an overlapped request whose completion is turned into a
// readiness event. The kernel writes into Overlapped until the completion
// is dequeued, so an Operation must not be reused before then.
type Operation struct {
	Overlapped windows.Overlapped // must stay the first field
	complete   func(n uint32, err error) (Event, bool)
}

// NewOperation creates an operation. complete runs on the polling goroutine
// with the transferred byte count and the I/O result; it returns the event
// to deliver, if any.
func NewOperation(complete func(n uint32, err error) (Event, bool)) *Operation {
	return &Operation{complete: complete}
}

type selector struct {
	port     windows.Handle
	mu       sync.Mutex
	inflight map[*Operation]struct{}
}

func newSelector() (*selector, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, os.NewSyscallError("CreateIoCompletionPort", err)
	}
	return &selector{port: port, inflight: make(map[*Operation]struct{})}, nil
}

func (s *selector) wait(events *Events, timeout time.Duration) error {
	wait := uint32(windows.INFINITE)
	if ms := timeoutMillis(timeout); ms >= 0 {
		wait = uint32(ms)
	}
	for !events.full() {
		var (
			n   uint32
			key uintptr
			ov  *windows.Overlapped
		)
		err := windows.GetQueuedCompletionStatus(s.port, &n, &key, &ov, wait)
		if ov == nil {
			if err == nil || err == windows.WAIT_TIMEOUT {
				return nil
			}
			return os.NewSyscallError("GetQueuedCompletionStatus", err)
		}
		op := (*Operation)(unsafe.Pointer(ov))
		s.mu.Lock()
		delete(s.inflight, op)
		s.mu.Unlock()
		if ev, ok := op.complete(n, err); ok {
			events.push(ev)
			wait = 0
		}
	}
	return nil
}

func (s *selector) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == 0 {
		return ErrClosed
	}
	err := windows.CloseHandle(s.port)
	s.port = 0
	return err
}

// Associate binds a handle opened with FILE_FLAG_OVERLAPPED to the
// completion port. A handle can be bound to one port for its whole life.
func (r *Registry) Associate(h windows.Handle) error {
	if _, err := windows.CreateIoCompletionPort(h, r.sel.port, 0, 0); err != nil {
		return os.NewSyscallError("CreateIoCompletionPort", err)
	}
	return nil
}

// Started records op as in flight. Call it once the overlapped call has
// returned success or ERROR_IO_PENDING: both queue a completion.
func (r *Registry) Started(op *Operation) {
	r.sel.mu.Lock()
	r.sel.inflight[op] = struct{}{}
	r.sel.mu.Unlock()
}

// Post queues op for completion without any I/O. It is how readiness that
// already exists is reported.
func (r *Registry) Post(op *Operation) error {
	r.Started(op)
	if err := windows.PostQueuedCompletionStatus(r.sel.port, 0, 0, &op.Overlapped); err != nil {
		r.sel.mu.Lock()
		delete(r.sel.inflight, op)
		r.sel.mu.Unlock()
		return os.NewSyscallError("PostQueuedCompletionStatus", err)
	}
	return nil
}
