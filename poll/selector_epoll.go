//go:build linux

package poll

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Tag is the name of the readiness facility.
var Tag = "epoll"

type selector struct {
	fd     int
	mu     sync.Mutex
	tokens map[int]Token
	events []unix.EpollEvent
}

func newSelector() (*selector, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &selector{
		fd:     fd,
		tokens: make(map[int]Token),
		events: make([]unix.EpollEvent, 1024),
	}, nil
}

func epollEvents(interest Ready) uint32 {
	events := uint32(unix.EPOLLET)
	if interest&Readable != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest&Writable != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func (s *selector) register(fd int, token Token, interest Ready) error {
	event := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := unix.EpollCtl(s.fd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	s.tokens[fd] = token
	return nil
}

func (s *selector) reregister(fd int, token Token, interest Ready) error {
	event := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := unix.EpollCtl(s.fd, unix.EPOLL_CTL_MOD, fd, &event); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	s.tokens[fd] = token
	return nil
}

func (s *selector) deregister(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := unix.EpollCtl(s.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	delete(s.tokens, fd)
	return nil
}

func (s *selector) wait(events *Events, timeout time.Duration) error {
	if cap(s.events) >= events.Capacity() {
		s.events = s.events[:events.Capacity()]
	} else {
		s.events = make([]unix.EpollEvent, events.Capacity())
	}
	n, err := unix.EpollWait(s.fd, s.events, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return os.NewSyscallError("epoll_wait", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		ev := s.events[i]
		token, ok := s.tokens[int(ev.Fd)]
		if !ok {
			// deregistered after the kernel queued the event
			continue
		}
		events.push(Event{token: token, ready: epollReady(ev.Events)})
	}
	return nil
}

func epollReady(ev uint32) Ready {
	var r Ready
	if ev&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		r |= Readable
	}
	if ev&unix.EPOLLOUT != 0 {
		r |= Writable
	}
	if ev&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
		r |= ReadClosed
	}
	if ev&unix.EPOLLHUP != 0 || (ev&unix.EPOLLOUT != 0 && ev&unix.EPOLLERR != 0) {
		r |= WriteClosed
	}
	if ev&unix.EPOLLERR != 0 {
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
