package serial

import "golang.org/x/sys/unix"

// Speeds are plain bit rates on FreeBSD.
func setSpeed(t *unix.Termios, baud uint32) {
	t.Ispeed = baud
	t.Ospeed = baud
}
