// Package serial provides non-blocking serial ports that plug into an
// edge-triggered readiness poller, so serial traffic can be driven by the
// same event loop as sockets and pipes.
//
// A port is opened from a Config, attached to a poll.Registry, and read or
// written whenever the poller reports it ready. Reads and writes never block:
// when the device has nothing to give (or no room to take) they return
// ErrWouldBlock, which is also the signal to stop draining and poll again.
//
// Features:
//   - Raw termios (Linux, Darwin, FreeBSD) or DCB (Windows) line setup
//   - Arbitrary baud rates on Linux through termios2
//   - epoll, kqueue and I/O completion port backends in package poll
//   - Modem line control: DTR, RTS, CTS, DSR, RI, CD and break
//   - PTY-based tests for reliability
//
// There is no framing and no buffering: bytes go straight between the caller
// and the OS.
//
// Example usage:
//
//	port, err := serial.Open(serial.New("/dev/ttyUSB0", 115200))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	p, err := poll.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Registry().Register(port, 0, poll.Readable); err != nil {
//	    log.Fatal(err)
//	}
//
//	events := poll.NewEvents(16)
//	buf := make([]byte, 1024)
//	for {
//	    if err := p.Poll(events, -1); err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, ev := range events.All() {
//	        if ev.IsReadClosed() || ev.IsError() {
//	            return
//	        }
//	        // edge-triggered: drain until ErrWouldBlock
//	        for {
//	            n, err := port.Read(buf)
//	            if errors.Is(err, serial.ErrWouldBlock) {
//	                break
//	            }
//	            if err != nil {
//	                log.Fatal(err)
//	            }
//	            fmt.Printf("%q\n", buf[:n])
//	        }
//	    }
//	}
package serial
