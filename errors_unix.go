//go:build linux || darwin || freebsd

package serial

import (
	"errors"

	"golang.org/x/sys/unix"
)

func osErrorKind(err error) ErrorKind {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return Other
	}
	switch errno {
	case unix.ENOENT, unix.ENODEV, unix.ENXIO:
		return NotFound
	case unix.EACCES, unix.EPERM:
		return PermissionDenied
	case unix.EBUSY:
		return DeviceBusy
	case unix.EINVAL, unix.ENOTTY:
		return InvalidInput
	case unix.EAGAIN:
		return WouldBlock
	}
	return Other
}
