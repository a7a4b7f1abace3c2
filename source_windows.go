//go:build windows

package serial

import (
	"errors"
	"fmt"

	"github.com/luhtfiimanal/go-serial-poll/poll"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

var _ poll.Source = (*Serial)(nil)

var errBoundToPort = errors.New("handle is bound to another completion port")

// Register implements poll.Source. The handle is bound to the registry's
// completion port on first use; Windows does not allow moving it to another
// port afterwards.
func (s *Serial) Register(r *poll.Registry, token poll.Token, interest poll.Ready) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.h == windows.InvalidHandle {
		return closedError("register", s.cfg.Device)
	}
	if s.registry != nil {
		return &Error{Op: "register", Device: s.cfg.Device, Kind: InvalidInput,
			Err: fmt.Errorf("%w (%s)", ErrAlreadyRegistered, s.registry)}
	}
	if s.associated == nil {
		if err := r.Associate(s.h); err != nil {
			return err
		}
		s.associated = r
	} else if s.associated != r {
		return &Error{Op: "register", Device: s.cfg.Device, Kind: InvalidInput, Err: errBoundToPort}
	}

	s.registry, s.token, s.interest = r, token, interest
	if err := s.armWait(); err != nil {
		s.resetRegistration()
		return err
	}
	if interest&poll.Writable != 0 && s.writeOp == nil {
		if err := s.post(poll.Writable); err != nil {
			s.resetRegistration()
			return err
		}
	}
	s.logRegistration("registered")
	return nil
}

// Reregister implements poll.Source.
func (s *Serial) Reregister(r *poll.Registry, token poll.Token, interest poll.Ready) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.h == windows.InvalidHandle {
		return closedError("reregister", s.cfg.Device)
	}
	if s.registry != r {
		return &Error{Op: "reregister", Device: s.cfg.Device, Kind: InvalidInput, Err: ErrNotRegistered}
	}

	added := interest &^ s.interest
	s.token, s.interest = token, interest
	if interest&poll.Readable == 0 {
		s.cancelWait()
	} else if err := s.armWait(); err != nil {
		return err
	}
	if added&poll.Writable != 0 && s.writeOp == nil {
		if err := s.post(poll.Writable); err != nil {
			return err
		}
	}
	s.logRegistration("reregistered")
	return nil
}

// Deregister implements poll.Source. The pending readiness wait is
// cancelled; its completion is swallowed.
func (s *Serial) Deregister(r *poll.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.h == windows.InvalidHandle {
		return closedError("deregister", s.cfg.Device)
	}
	if s.registry != r {
		return &Error{Op: "deregister", Device: s.cfg.Device, Kind: InvalidInput, Err: ErrNotRegistered}
	}
	s.logRegistration("deregistered")
	s.resetRegistration()
	return nil
}

// resetRegistration detaches the port from its registry; a pending wait
// completes aborted and is swallowed. Called with mu held.
func (s *Serial) resetRegistration() {
	s.cancelWait()
	s.registry, s.token, s.interest = nil, 0, 0
}

// armWait issues an overlapped WaitCommEvent unless one is pending or
// readable interest is off. Input that is already queued is reported right
// away, since WaitCommEvent only signals new arrivals. Called with mu held.
func (s *Serial) armWait() error {
	if s.registry == nil || s.interest&poll.Readable == 0 || s.waitPending {
		return nil
	}
	s.waitOp.Overlapped = windows.Overlapped{}
	err := windows.WaitCommEvent(s.h, &s.evtMask, &s.waitOp.Overlapped)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return newError("wait comm event", s.cfg.Device, err)
	}
	s.waitPending = true
	s.registry.Started(s.waitOp)

	var (
		errs uint32
		stat windows.ComStat
	)
	if err := windows.ClearCommError(s.h, &errs, &stat); err != nil {
		return newError("clear comm error", s.cfg.Device, err)
	}
	if stat.CBInQue > 0 {
		return s.post(poll.Readable)
	}
	return nil
}

func (s *Serial) cancelWait() {
	if s.waitPending {
		windows.CancelIoEx(s.h, &s.waitOp.Overlapped)
	}
}

// waitDone runs on the polling goroutine when WaitCommEvent completes.
func (s *Serial) waitDone(n uint32, err error) (poll.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitPending = false
	if s.registry == nil {
		return poll.Event{}, false
	}
	if err == windows.ERROR_OPERATION_ABORTED {
		// cancelled by a reregister that dropped and restored readable
		s.armWait()
		return poll.Event{}, false
	}

	var ready poll.Ready
	if err != nil {
		ready = poll.Error | poll.ReadClosed
	} else {
		if s.evtMask&windows.EV_RXCHAR != 0 {
			ready |= poll.Readable
		}
		if s.evtMask&windows.EV_ERR != 0 {
			ready |= poll.Error
		}
	}
	if ready == 0 {
		s.armWait()
		return poll.Event{}, false
	}
	return poll.NewEvent(s.token, ready), true
}

// writeDone runs on the polling goroutine when an overlapped write completes.
func (s *Serial) writeDone(op *poll.Operation, err error) (poll.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeOp == op {
		s.writeOp = nil
	}
	if s.registry == nil {
		return poll.Event{}, false
	}
	switch {
	case err != nil && err != windows.ERROR_OPERATION_ABORTED:
		return poll.NewEvent(s.token, poll.Error|poll.WriteClosed), true
	case err == nil && s.interest&poll.Writable != 0:
		return poll.NewEvent(s.token, poll.Writable), true
	}
	return poll.Event{}, false
}

// post reports readiness that exists now. The token is read when the event
// is dequeued, so a reregister in between is honoured. Called with mu held.
func (s *Serial) post(ready poll.Ready) error {
	op := poll.NewOperation(func(uint32, error) (poll.Event, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.registry == nil || s.interest&(ready&(poll.Readable|poll.Writable)) == 0 {
			return poll.Event{}, false
		}
		return poll.NewEvent(s.token, ready), true
	})
	return s.registry.Post(op)
}

func (s *Serial) logRegistration(msg string) {
	log.WithFields(logrus.Fields{
		"device":   s.cfg.Device,
		"registry": s.registry.ID().String(),
		"token":    s.token,
		"interest": s.interest,
	}).Debug(msg)
}
