package serial

import (
	"errors"
	"io"
	"os"
)

// ErrorKind classifies errors returned by this package.
type ErrorKind int

const (
	Other ErrorKind = iota
	NotFound
	PermissionDenied
	DeviceBusy
	InvalidInput
	WouldBlock
	UnexpectedEOF
)

var kindNames = [...]string{
	Other:            "other error",
	NotFound:         "device not found",
	PermissionDenied: "permission denied",
	DeviceBusy:       "device busy",
	InvalidInput:     "invalid input",
	WouldBlock:       "operation would block",
	UnexpectedEOF:    "unexpected end of file",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[Other]
	}
	return kindNames[k]
}

// Error records a failed operation on a port. The OS error, when there is
// one, is kept in Err so errors.Is works against errno values.
type Error struct {
	Op     string
	Device string
	Kind   ErrorKind
	Err    error
}

func (e *Error) Error() string {
	s := "serial"
	if e.Op != "" {
		s += " " + e.Op
	}
	if e.Device != "" {
		s += " " + e.Device
	}
	if e.Err != nil {
		return s + ": " + e.Err.Error()
	}
	return s + ": " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare *Error of the same kind, which makes
// the Err* sentinels below match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Device == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	// ErrWouldBlock is returned by Read and Write when the operation cannot
	// make progress without blocking. It ends an edge-triggered drain loop.
	ErrWouldBlock = &Error{Kind: WouldBlock}

	ErrNotFound         = &Error{Kind: NotFound}
	ErrPermissionDenied = &Error{Kind: PermissionDenied}
	ErrDeviceBusy       = &Error{Kind: DeviceBusy}
	ErrInvalidInput     = &Error{Kind: InvalidInput}

	// ErrAlreadyRegistered is wrapped when a port attached to one registry is
	// registered with another.
	ErrAlreadyRegistered = errors.New("already registered with another registry")
	// ErrNotRegistered is wrapped when reregistering or deregistering a port
	// that is not attached to the given registry.
	ErrNotRegistered = errors.New("not registered with this registry")

	errNotCharDevice = errors.New("not a character device")
)

// KindOf returns the kind of err. End-of-file maps to UnexpectedEOF.
func KindOf(err error) ErrorKind {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return UnexpectedEOF
	}
	return Other
}

func newError(op, device string, err error) error {
	return &Error{Op: op, Device: device, Kind: osErrorKind(err), Err: err}
}

func closedError(op, device string) error {
	return &Error{Op: op, Device: device, Kind: Other, Err: os.ErrClosed}
}
