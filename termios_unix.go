//go:build linux || darwin || freebsd

package serial

import "golang.org/x/sys/unix"

// makeRaw disables all input and output processing. CLOCAL and HUPCL are
// cleared so a carrier drop is reported as a hang-up and closing the port
// leaves the modem lines alone.
func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR |
		unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY | unix.INPCK | unix.IGNPAR
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS | unix.CLOCAL | unix.HUPCL
	t.Cflag |= unix.CREAD

	// VMIN must be 1: with VMIN=0 an empty read returns 0 instead of EAGAIN,
	// which Read reports as a hang-up
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

func setLine(t *unix.Termios, cfg Config) {
	switch cfg.DataBits {
	case DataBits5:
		t.Cflag |= unix.CS5
	case DataBits6:
		t.Cflag |= unix.CS6
	case DataBits7:
		t.Cflag |= unix.CS7
	default:
		t.Cflag |= unix.CS8
	}

	switch cfg.Parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
		t.Iflag |= unix.INPCK
	case ParityEven:
		t.Cflag |= unix.PARENB
		t.Iflag |= unix.INPCK
	}

	if cfg.StopBits == StopBits2 {
		t.Cflag |= unix.CSTOPB
	}

	switch cfg.FlowControl {
	case FlowSoftware:
		t.Iflag |= unix.IXON | unix.IXOFF
	case FlowHardware:
		t.Cflag |= unix.CRTSCTS
	}
}
