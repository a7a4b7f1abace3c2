//go:build !linux && !darwin && !freebsd && !windows

package serial

import "errors"

var errUnsupported = errors.New("system not supported")

// Serial is unavailable on this platform.
type Serial struct {
	cfg Config
}

// Open always fails on this platform.
func Open(cfg Config) (*Serial, error) {
	return nil, &Error{Op: "open", Device: cfg.Device, Kind: Other, Err: errUnsupported}
}

// Config returns the configuration the port was opened with.
func (s *Serial) Config() Config { return s.cfg }

// Read always fails on this platform.
func (s *Serial) Read(p []byte) (int, error) { return 0, errUnsupported }

// Write always fails on this platform.
func (s *Serial) Write(p []byte) (int, error) { return 0, errUnsupported }

// Flush is a no-op.
func (s *Serial) Flush() error { return nil }

// Close is a no-op.
func (s *Serial) Close() error { return nil }

func osErrorKind(err error) ErrorKind { return Other }
