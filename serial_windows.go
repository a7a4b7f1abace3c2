//go:build windows

package serial

import (
	"io"
	"sync"
	"unsafe"

	"github.com/luhtfiimanal/go-serial-poll/poll"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// DCB.Flags bits not exported by x/sys/windows.
const (
	dcbBinary      = 0x00000001
	dcbParity      = 0x00000002
	dcbOutxCtsFlow = 0x00000004
	dcbOutX        = 0x00000100
	dcbInX         = 0x00000200

	maxDWORD = 0xFFFFFFFF

	msCTSOn  = 0x0010
	msDSROn  = 0x0020
	msRingOn = 0x0040
	msRLSDOn = 0x0080
)

// Serial is a non-blocking serial port. Read and Write never block; they
// return ErrWouldBlock instead, and readiness is learned by registering the
// port with a poll.Registry.
//
// A Serial is not safe for concurrent Read or Write calls from several
// goroutines.
type Serial struct {
	h         windows.Handle
	cfg       Config
	closeOnce sync.Once
	closeErr  error

	readOv    windows.Overlapped
	readN     uint32
	readEvent windows.Handle

	dtr, rts bool

	// mu guards the fields below, which the polling goroutine touches when
	// completions are dequeued. See source_windows.go.
	mu          sync.Mutex
	registry    *poll.Registry
	associated  *poll.Registry
	token       poll.Token
	interest    poll.Ready
	waitOp      *poll.Operation
	waitPending bool
	evtMask     uint32
	writeOp     *poll.Operation
	writeN      uint32
	writeBuf    []byte
	writeEvent  windows.Handle
}

// Open opens the COM port named in cfg with overlapped I/O and applies the
// line settings. Timeouts are set so that reads return at once with whatever
// is queued. On failure nothing is left open.
func Open(cfg Config) (*Serial, error) {
	cfg = cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, &Error{Op: "open", Device: cfg.Device, Kind: InvalidInput, Err: err}
	}

	name, err := windows.UTF16PtrFromString(normalizePortName(cfg.Device))
	if err != nil {
		return nil, &Error{Op: "open", Device: cfg.Device, Kind: InvalidInput, Err: err}
	}
	h, err := windows.CreateFile(name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL|windows.FILE_FLAG_OVERLAPPED,
		0)
	if err != nil {
		return nil, newError("open", cfg.Device, err)
	}

	s := &Serial{h: h, cfg: cfg}
	if err := s.configure(); err != nil {
		s.release()
		return nil, err
	}
	s.waitOp = poll.NewOperation(s.waitDone)

	log.WithFields(logrus.Fields{"device": cfg.Device, "config": cfg.String()}).Debug("opened")
	return s, nil
}

func (s *Serial) configure() error {
	var dcb windows.DCB
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if err := windows.GetCommState(s.h, &dcb); err != nil {
		return newError("get comm state", s.cfg.Device, err)
	}

	dcb.BaudRate = s.cfg.BaudRate
	dcb.ByteSize = uint8(s.cfg.DataBits)
	dcb.Flags = dcbBinary | windows.DTR_CONTROL_ENABLE
	s.dtr = true

	switch s.cfg.Parity {
	case ParityOdd:
		dcb.Parity = windows.ODDPARITY
		dcb.Flags |= dcbParity
	case ParityEven:
		dcb.Parity = windows.EVENPARITY
		dcb.Flags |= dcbParity
	default:
		dcb.Parity = windows.NOPARITY
	}

	if s.cfg.StopBits == StopBits2 {
		dcb.StopBits = windows.TWOSTOPBITS
	} else {
		dcb.StopBits = windows.ONESTOPBIT
	}

	switch s.cfg.FlowControl {
	case FlowSoftware:
		dcb.Flags |= dcbOutX | dcbInX | windows.RTS_CONTROL_ENABLE
		dcb.XonChar, dcb.XoffChar = 0x11, 0x13
		dcb.XonLim, dcb.XoffLim = 2048, 512
		s.rts = true
	case FlowHardware:
		dcb.Flags |= dcbOutxCtsFlow | windows.RTS_CONTROL_HANDSHAKE
	default:
		dcb.Flags |= windows.RTS_CONTROL_ENABLE
		s.rts = true
	}

	if err := windows.SetCommState(s.h, &dcb); err != nil {
		return newError("set comm state", s.cfg.Device, err)
	}

	// MAXDWORD interval with zero totals: return immediately with what is
	// already buffered, even if that is nothing
	timeouts := windows.CommTimeouts{ReadIntervalTimeout: maxDWORD}
	if err := windows.SetCommTimeouts(s.h, &timeouts); err != nil {
		return newError("set comm timeouts", s.cfg.Device, err)
	}
	if err := windows.SetCommMask(s.h, windows.EV_RXCHAR|windows.EV_ERR); err != nil {
		return newError("set comm mask", s.cfg.Device, err)
	}

	var err error
	if s.readEvent, err = windows.CreateEvent(nil, 1, 0, nil); err != nil {
		return newError("create event", s.cfg.Device, err)
	}
	if s.writeEvent, err = windows.CreateEvent(nil, 1, 0, nil); err != nil {
		return newError("create event", s.cfg.Device, err)
	}
	return nil
}

func (s *Serial) release() error {
	err := windows.CloseHandle(s.h)
	s.h = windows.InvalidHandle
	for _, ev := range []windows.Handle{s.readEvent, s.writeEvent} {
		if ev != 0 {
			windows.CloseHandle(ev)
		}
	}
	return err
}

// Handle returns the OS handle. It stays owned by the port.
func (s *Serial) Handle() windows.Handle { return s.h }

// Config returns the configuration the port was opened with.
func (s *Serial) Config() Config { return s.cfg }

// Read reads up to len(p) bytes. It returns ErrWouldBlock when nothing is
// queued; when registered for readable interest that also re-arms the
// readiness wait.
func (s *Serial) Read(p []byte) (int, error) {
	if s.h == windows.InvalidHandle {
		return 0, closedError("read", s.cfg.Device)
	}
	if len(p) == 0 {
		return 0, nil
	}

	s.readOv = windows.Overlapped{}
	// the low bit keeps this completion off the completion port
	s.readOv.HEvent = s.readEvent | 1
	err := windows.ReadFile(s.h, p, &s.readN, &s.readOv)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return 0, s.readError(err)
	}
	if err := windows.GetOverlappedResult(s.h, &s.readOv, &s.readN, true); err != nil {
		return 0, s.readError(err)
	}
	if s.readN == 0 {
		s.mu.Lock()
		err := s.armWait()
		s.mu.Unlock()
		if err != nil {
			return 0, err
		}
		return 0, ErrWouldBlock
	}
	return int(s.readN), nil
}

func (s *Serial) readError(err error) error {
	if err == windows.ERROR_HANDLE_EOF {
		return io.EOF
	}
	return newError("read", s.cfg.Device, err)
}

// Write queues p as one overlapped write and returns len(p). While a write
// is in flight further writes return ErrWouldBlock; its completion is
// reported as a writable event when the port is registered for it.
func (s *Serial) Write(p []byte) (int, error) {
	if s.h == windows.InvalidHandle {
		return 0, closedError("write", s.cfg.Device)
	}
	if len(p) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeOp != nil {
		var n uint32
		err := windows.GetOverlappedResult(s.h, &s.writeOp.Overlapped, &n, false)
		if err == windows.ERROR_IO_INCOMPLETE {
			return 0, ErrWouldBlock
		}
		s.writeOp = nil
		if err != nil {
			return 0, newError("write", s.cfg.Device, err)
		}
	}

	s.writeBuf = append(s.writeBuf[:0], p...)
	var op *poll.Operation
	op = poll.NewOperation(func(n uint32, err error) (poll.Event, bool) {
		return s.writeDone(op, err)
	})
	op.Overlapped.HEvent = s.writeEvent
	err := windows.WriteFile(s.h, s.writeBuf, &s.writeN, &op.Overlapped)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return 0, newError("write", s.cfg.Device, err)
	}
	s.writeOp = op
	if s.associated != nil {
		s.associated.Started(op)
	}
	return len(p), nil
}

// Flush is a no-op: there is no user-space buffer to drain.
func (s *Serial) Flush() error { return nil }

// Close cancels outstanding I/O and closes the port. Safe to call multiple
// times; subsequent calls are no-ops.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		entry := log.WithField("device", s.cfg.Device)
		if s.registry != nil {
			entry = entry.WithField("token", s.token)
		}
		s.registry, s.interest = nil, 0
		windows.CancelIoEx(s.h, nil)
		s.closeErr = s.release()
		s.mu.Unlock()
		entry.Debug("closed")
	})
	return s.closeErr
}

func (s *Serial) escape(op string, fn uint32) error {
	if s.h == windows.InvalidHandle {
		return closedError(op, s.cfg.Device)
	}
	if err := windows.EscapeCommFunction(s.h, fn); err != nil {
		return newError(op, s.cfg.Device, err)
	}
	return nil
}

// SetDTR raises or lowers Data Terminal Ready.
func (s *Serial) SetDTR(on bool) error {
	fn := uint32(windows.CLRDTR)
	if on {
		fn = windows.SETDTR
	}
	if err := s.escape("set dtr", fn); err != nil {
		return err
	}
	s.dtr = on
	return nil
}

// SetRTS raises or lowers Request To Send.
func (s *Serial) SetRTS(on bool) error {
	fn := uint32(windows.CLRRTS)
	if on {
		fn = windows.SETRTS
	}
	if err := s.escape("set rts", fn); err != nil {
		return err
	}
	s.rts = on
	return nil
}

// DTR reports the last DTR level set; Windows cannot read outputs back.
func (s *Serial) DTR() (bool, error) { return s.dtr, nil }

// RTS reports the last RTS level set; Windows cannot read outputs back.
func (s *Serial) RTS() (bool, error) { return s.rts, nil }

func (s *Serial) modemStatus(bit uint32) (bool, error) {
	if s.h == windows.InvalidHandle {
		return false, closedError("get modem status", s.cfg.Device)
	}
	var status uint32
	if err := windows.GetCommModemStatus(s.h, &status); err != nil {
		return false, newError("get modem status", s.cfg.Device, err)
	}
	return status&bit != 0, nil
}

// CTS reports the Clear To Send input.
func (s *Serial) CTS() (bool, error) { return s.modemStatus(msCTSOn) }

// DSR reports the Data Set Ready input.
func (s *Serial) DSR() (bool, error) { return s.modemStatus(msDSROn) }

// RI reports the Ring Indicator input.
func (s *Serial) RI() (bool, error) { return s.modemStatus(msRingOn) }

// CD reports the Carrier Detect input.
func (s *Serial) CD() (bool, error) { return s.modemStatus(msRLSDOn) }

// SetBreak starts transmitting a break condition until ClearBreak.
func (s *Serial) SetBreak() error {
	if s.h == windows.InvalidHandle {
		return closedError("set break", s.cfg.Device)
	}
	if err := windows.SetCommBreak(s.h); err != nil {
		return newError("set break", s.cfg.Device, err)
	}
	return nil
}

// ClearBreak stops transmitting a break condition.
func (s *Serial) ClearBreak() error {
	if s.h == windows.InvalidHandle {
		return closedError("clear break", s.cfg.Device)
	}
	if err := windows.ClearCommBreak(s.h); err != nil {
		return newError("clear break", s.cfg.Device, err)
	}
	return nil
}
