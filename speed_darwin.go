package serial

import "golang.org/x/sys/unix"

// Speeds are plain bit rates on Darwin.
func setSpeed(t *unix.Termios, baud uint32) {
	t.Ispeed = uint64(baud)
	t.Ospeed = uint64(baud)
}
