//go:build windows

package serial

import (
	"errors"

	"golang.org/x/sys/windows"
)

func osErrorKind(err error) ErrorKind {
	var errno windows.Errno
	if !errors.As(err, &errno) {
		return Other
	}
	switch errno {
	case windows.ERROR_FILE_NOT_FOUND, windows.ERROR_PATH_NOT_FOUND:
		return NotFound
	case windows.ERROR_ACCESS_DENIED, windows.ERROR_SHARING_VIOLATION:
		return DeviceBusy
	case windows.ERROR_INVALID_PARAMETER, windows.ERROR_INVALID_NAME:
		return InvalidInput
	case windows.ERROR_IO_PENDING, windows.ERROR_IO_INCOMPLETE:
		return WouldBlock
	}
	return Other
}
