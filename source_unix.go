//go:build linux || darwin || freebsd

package serial

import (
	"fmt"

	"github.com/luhtfiimanal/go-serial-poll/poll"
	"github.com/sirupsen/logrus"
)

var _ poll.Source = (*Serial)(nil)

// Register implements poll.Source. It is called by poll.Registry.Register,
// which is what callers should use.
func (s *Serial) Register(r *poll.Registry, token poll.Token, interest poll.Ready) error {
	if s.fd < 0 {
		return closedError("register", s.cfg.Device)
	}
	if s.registry != nil && s.registry != r {
		return &Error{Op: "register", Device: s.cfg.Device, Kind: InvalidInput,
			Err: fmt.Errorf("%w (%s)", ErrAlreadyRegistered, s.registry)}
	}
	if err := r.RegisterFd(s.fd, token, interest); err != nil {
		return err
	}
	s.registry, s.token, s.interest = r, token, interest
	s.logRegistration("registered")
	return nil
}

// Reregister implements poll.Source.
func (s *Serial) Reregister(r *poll.Registry, token poll.Token, interest poll.Ready) error {
	if s.fd < 0 {
		return closedError("reregister", s.cfg.Device)
	}
	if s.registry != r {
		return &Error{Op: "reregister", Device: s.cfg.Device, Kind: InvalidInput, Err: ErrNotRegistered}
	}
	if err := r.ReregisterFd(s.fd, token, interest); err != nil {
		return err
	}
	s.token, s.interest = token, interest
	s.logRegistration("reregistered")
	return nil
}

// Deregister implements poll.Source. The port stays open.
func (s *Serial) Deregister(r *poll.Registry) error {
	if s.fd < 0 {
		return closedError("deregister", s.cfg.Device)
	}
	if s.registry != r {
		return &Error{Op: "deregister", Device: s.cfg.Device, Kind: InvalidInput, Err: ErrNotRegistered}
	}
	if err := r.DeregisterFd(s.fd); err != nil {
		return err
	}
	s.logRegistration("deregistered")
	s.registry, s.token, s.interest = nil, 0, 0
	return nil
}

func (s *Serial) logRegistration(msg string) {
	log.WithFields(logrus.Fields{
		"device":   s.cfg.Device,
		"registry": s.registry.ID().String(),
		"token":    s.token,
		"interest": s.interest,
	}).Debug(msg)
}
