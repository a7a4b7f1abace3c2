//go:build darwin || freebsd

package poll

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Tag is the name of the readiness facility.
var Tag = "kqueue"

type selector struct {
	fd     int
	mu     sync.Mutex
	tokens map[int]Token
	events []unix.Kevent_t
}

func newSelector() (*selector, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(fd)
	return &selector{
		fd:     fd,
		tokens: make(map[int]Token),
		events: make([]unix.Kevent_t, 1024),
	}, nil
}

// changes builds the filter updates for interest. Filters not in interest
// are deleted when del is set.
func changes(fd int, interest Ready, del bool) []unix.Kevent_t {
	var list []unix.Kevent_t
	for _, f := range []struct {
		filter int
		bit    Ready
	}{
		{unix.EVFILT_READ, Readable},
		{unix.EVFILT_WRITE, Writable},
	} {
		var k unix.Kevent_t
		switch {
		case interest&f.bit != 0:
			unix.SetKevent(&k, fd, f.filter, unix.EV_ADD|unix.EV_CLEAR|unix.EV_RECEIPT)
		case del:
			unix.SetKevent(&k, fd, f.filter, unix.EV_DELETE|unix.EV_RECEIPT)
		default:
			continue
		}
		list = append(list, k)
	}
	return list
}

// apply submits changes with EV_RECEIPT so each one reports its own result.
// ENOENT from deleting a filter that was never added is ignored.
func (s *selector) apply(list []unix.Kevent_t) error {
	if len(list) == 0 {
		return nil
	}
	receipts := make([]unix.Kevent_t, len(list))
	n, err := unix.Kevent(s.fd, list, receipts, nil)
	if err != nil {
		return os.NewSyscallError("kevent", err)
	}
	for _, r := range receipts[:n] {
		if r.Flags&unix.EV_ERROR == 0 || r.Data == 0 {
			continue
		}
		if errno := unix.Errno(r.Data); errno != unix.ENOENT || r.Flags&unix.EV_DELETE == 0 {
			return os.NewSyscallError("kevent", errno)
		}
	}
	return nil
}

func (s *selector) register(fd int, token Token, interest Ready) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[fd]; ok {
		return os.NewSyscallError("kevent", unix.EEXIST)
	}
	if err := s.apply(changes(fd, interest, false)); err != nil {
		return err
	}
	s.tokens[fd] = token
	return nil
}

func (s *selector) reregister(fd int, token Token, interest Ready) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[fd]; !ok {
		return os.NewSyscallError("kevent", unix.ENOENT)
	}
	if err := s.apply(changes(fd, interest, true)); err != nil {
		return err
	}
	s.tokens[fd] = token
	return nil
}

func (s *selector) deregister(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[fd]; !ok {
		return os.NewSyscallError("kevent", unix.ENOENT)
	}
	delete(s.tokens, fd)
	return s.apply(changes(fd, 0, true))
}

func (s *selector) wait(events *Events, timeout time.Duration) error {
	if cap(s.events) >= events.Capacity() {
		s.events = s.events[:events.Capacity()]
	} else {
		s.events = make([]unix.Kevent_t, events.Capacity())
	}
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMillis(timeout)) * int64(time.Millisecond))
		ts = &t
	}
	n, err := unix.Kevent(s.fd, nil, s.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return os.NewSyscallError("kevent", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// read and write filters of one descriptor arrive as separate kevents
	index := make(map[Token]int, n)
	for i := 0; i < n; i++ {
		ev := s.events[i]
		token, ok := s.tokens[int(ev.Ident)]
		if !ok {
			continue
		}
		ready := kqueueReady(ev)
		if j, ok := index[token]; ok {
			events.list[j].ready |= ready
			continue
		}
		index[token] = events.Len()
		events.push(Event{token: token, ready: ready})
	}
	return nil
}

func kqueueReady(ev unix.Kevent_t) Ready {
	var r Ready
	switch ev.Filter {
	case unix.EVFILT_READ:
		r |= Readable
		if ev.Flags&unix.EV_EOF != 0 {
			r |= ReadClosed
		}
	case unix.EVFILT_WRITE:
		r |= Writable
		if ev.Flags&unix.EV_EOF != 0 {
			r |= WriteClosed
		}
	}
	if ev.Flags&unix.EV_ERROR != 0 || (ev.Flags&unix.EV_EOF != 0 && ev.Fflags != 0) {
		r |= Error
	}
	return r
}

func (s *selector) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return ErrClosed
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
