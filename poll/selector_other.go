//go:build !linux && !darwin && !freebsd && !windows

package poll

import (
	"errors"
	"time"
)

// Tag is the name of the readiness facility.
var Tag = "none"

var errUnsupported = errors.New("poll: system not supported")

type selector struct{}

func newSelector() (*selector, error) {
	return nil, errUnsupported
}

func (s *selector) wait(events *Events, timeout time.Duration) error {
	return errUnsupported
}

func (s *selector) close() error {
	return errUnsupported
}

// Waker is unavailable on this platform.
type Waker struct{}

func NewWaker(r *Registry, token Token) (*Waker, error) {
	return nil, errUnsupported
}

func (w *Waker) Wake() error { return errUnsupported }
func (w *Waker) Close() error { return errUnsupported }
