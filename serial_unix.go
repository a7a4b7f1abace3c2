//go:build linux || darwin || freebsd

package serial

import (
	"io"
	"sync"

	"github.com/luhtfiimanal/go-serial-poll/poll"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Serial is a non-blocking serial port. Read and Write never block; they
// return ErrWouldBlock instead, and readiness is learned by registering the
// port with a poll.Registry.
//
// A Serial is not safe for concurrent Read or Write calls from several
// goroutines.
type Serial struct {
	fd        int
	cfg       Config
	closeOnce sync.Once
	closeErr  error

	// registration, see source_unix.go
	registry *poll.Registry
	token    poll.Token
	interest poll.Ready
}

// Open opens the device named in cfg for reading and writing, puts it in
// non-blocking raw mode and applies the line settings. On failure nothing is
// left open.
func Open(cfg Config) (*Serial, error) {
	cfg = cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, &Error{Op: "open", Device: cfg.Device, Kind: InvalidInput, Err: err}
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, newError("open", cfg.Device, err)
	}
	if err := configure(fd, cfg); err != nil {
		unix.Close(fd)
		return nil, err
	}

	log.WithFields(logrus.Fields{"device": cfg.Device, "config": cfg.String()}).Debug("opened")
	return &Serial{fd: fd, cfg: cfg}, nil
}

func configure(fd int, cfg Config) error {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return newError("stat", cfg.Device, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return &Error{Op: "open", Device: cfg.Device, Kind: InvalidInput, Err: errNotCharDevice}
	}

	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return newError("get termios", cfg.Device, err)
	}
	makeRaw(t)
	setLine(t, cfg)
	setSpeed(t, cfg.BaudRate)
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, t); err != nil {
		return newError("set termios", cfg.Device, err)
	}

	if cfg.Exclusive {
		if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
			return newError("exclusive", cfg.Device, err)
		}
	}
	return nil
}

// Fd returns the OS file descriptor. It stays owned by the port.
func (s *Serial) Fd() int { return s.fd }

// Config returns the configuration the port was opened with.
func (s *Serial) Config() Config { return s.cfg }

// Read reads up to len(p) bytes. It returns ErrWouldBlock when no data is
// pending and io.EOF when the line has hung up.
func (s *Serial) Read(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, closedError("read", s.cfg.Device)
	}
	for {
		n, err := unix.Read(s.fd, p)
		switch err {
		case nil:
			if n == 0 && len(p) > 0 {
				return 0, io.EOF
			}
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		}
		return 0, newError("read", s.cfg.Device, err)
	}
}

// Write writes up to len(p) bytes. Short writes happen when the OS buffer
// fills up; ErrWouldBlock is returned when nothing could be written.
func (s *Serial) Write(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, closedError("write", s.cfg.Device)
	}
	for {
		n, err := unix.Write(s.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		}
		return 0, newError("write", s.cfg.Device, err)
	}
}

// Flush is a no-op: writes go straight to the OS.
func (s *Serial) Flush() error { return nil }

// Close closes the port, detaching it first if it is still registered.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		entry := log.WithField("device", s.cfg.Device)
		if s.registry != nil {
			entry = entry.WithField("token", s.token)
			s.registry.DeregisterFd(s.fd)
		}
		if s.cfg.Exclusive {
			unix.IoctlSetInt(s.fd, unix.TIOCNXCL, 0)
		}
		s.closeErr = unix.Close(s.fd)
		s.fd = -1
		s.registry = nil
		entry.Debug("closed")
	})
	return s.closeErr
}

func (s *Serial) setModemBits(bits int, on bool) error {
	if s.fd < 0 {
		return closedError("set modem lines", s.cfg.Device)
	}
	var req uint = unix.TIOCMBIC
	if on {
		req = unix.TIOCMBIS
	}
	if err := unix.IoctlSetPointerInt(s.fd, req, bits); err != nil {
		return newError("set modem lines", s.cfg.Device, err)
	}
	return nil
}

func (s *Serial) modemBit(bit int) (bool, error) {
	if s.fd < 0 {
		return false, closedError("get modem lines", s.cfg.Device)
	}
	bits, err := unix.IoctlGetInt(s.fd, unix.TIOCMGET)
	if err != nil {
		return false, newError("get modem lines", s.cfg.Device, err)
	}
	return bits&bit != 0, nil
}

// SetDTR raises or lowers Data Terminal Ready.
func (s *Serial) SetDTR(on bool) error { return s.setModemBits(unix.TIOCM_DTR, on) }

// SetRTS raises or lowers Request To Send.
func (s *Serial) SetRTS(on bool) error { return s.setModemBits(unix.TIOCM_RTS, on) }

// DTR reports the Data Terminal Ready output.
func (s *Serial) DTR() (bool, error) { return s.modemBit(unix.TIOCM_DTR) }

// RTS reports the Request To Send output.
func (s *Serial) RTS() (bool, error) { return s.modemBit(unix.TIOCM_RTS) }

// CTS reports the Clear To Send input.
func (s *Serial) CTS() (bool, error) { return s.modemBit(unix.TIOCM_CTS) }

// DSR reports the Data Set Ready input.
func (s *Serial) DSR() (bool, error) { return s.modemBit(unix.TIOCM_DSR) }

// RI reports the Ring Indicator input.
func (s *Serial) RI() (bool, error) { return s.modemBit(unix.TIOCM_RI) }

// CD reports the Carrier Detect input.
func (s *Serial) CD() (bool, error) { return s.modemBit(unix.TIOCM_CAR) }

// SetBreak starts transmitting a break condition until ClearBreak.
func (s *Serial) SetBreak() error { return s.breakIoctl("set break", unix.TIOCSBRK) }

// ClearBreak stops transmitting a break condition.
func (s *Serial) ClearBreak() error { return s.breakIoctl("clear break", unix.TIOCCBRK) }

func (s *Serial) breakIoctl(op string, req uint) error {
	if s.fd < 0 {
		return closedError(op, s.cfg.Device)
	}
	if err := unix.IoctlSetInt(s.fd, req, 0); err != nil {
		return newError(op, s.cfg.Device, err)
	}
	return nil
}
