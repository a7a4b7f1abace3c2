package serial

import (
	"errors"
	"fmt"
	"time"
)

// DataBits is the number of data bits per character, 5 through 8.
type DataBits uint8

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

// String returns the count as a digit, as in "8N1".
func (d DataBits) String() string { return fmt.Sprintf("%d", uint8(d)) }

// Parity is the parity checking mode.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// String returns the parity letter used in "8N1" notation.
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	}
	return fmt.Sprintf("Parity(%d)", uint8(p))
}

// StopBits is the number of stop bits.
type StopBits uint8

const (
	StopBits1 StopBits = 1
	StopBits2 StopBits = 2
)

// String returns the count as a digit, as in "8N1".
func (s StopBits) String() string { return fmt.Sprintf("%d", uint8(s)) }

// FlowControl selects the handshake used on the line.
type FlowControl uint8

const (
	FlowNone     FlowControl = iota
	FlowSoftware             // XON/XOFF
	FlowHardware             // RTS/CTS
)

// String returns "none", "software" or "hardware".
func (f FlowControl) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowSoftware:
		return "software"
	case FlowHardware:
		return "hardware"
	}
	return fmt.Sprintf("FlowControl(%d)", uint8(f))
}

// Config holds configuration parameters for opening a serial port.
//
// Validation happens in Open, since the legal baud rates and line settings
// depend on the platform and the device.
type Config struct {
	Device      string // /dev/ttyUSB0, COM3
	BaudRate    uint32
	DataBits    DataBits // zero means 8
	Parity      Parity
	StopBits    StopBits // zero means 1
	FlowControl FlowControl
	// ReadTimeout has no effect: ports are always non-blocking. It is kept
	// so configurations can be shared with blocking serial libraries.
	ReadTimeout time.Duration
	// Exclusive asks the OS to refuse further opens of the device (TIOCEXCL).
	// Windows COM ports are always exclusive.
	Exclusive bool
}

// New returns a configuration for device at baud, 8N1, no flow control.
func New(device string, baud uint32) Config {
	return Config{
		Device:    device,
		BaudRate:  baud,
		DataBits:  DataBits8,
		Parity:    ParityNone,
		StopBits:  StopBits1,
		Exclusive: true,
	}
}

// WithDevice returns a copy of c that opens device.
func (c Config) WithDevice(device string) Config {
	c.Device = device
	return c
}

// WithBaudRate returns a copy of c with the given baud rate. Rates outside
// the standard table are passed to the driver as is on Linux.
func (c Config) WithBaudRate(baud uint32) Config {
	c.BaudRate = baud
	return c
}

// WithDataBits returns a copy of c with d data bits per character.
func (c Config) WithDataBits(d DataBits) Config {
	c.DataBits = d
	return c
}

// WithParity returns a copy of c with parity p.
func (c Config) WithParity(p Parity) Config {
	c.Parity = p
	return c
}

// WithStopBits returns a copy of c with s stop bits.
func (c Config) WithStopBits(s StopBits) Config {
	c.StopBits = s
	return c
}

// WithFlowControl returns a copy of c with flow control f.
func (c Config) WithFlowControl(f FlowControl) Config {
	c.FlowControl = f
	return c
}

// WithReadTimeout returns a copy of c with ReadTimeout set. It has no
// effect on reads; see Config.ReadTimeout.
func (c Config) WithReadTimeout(d time.Duration) Config {
	c.ReadTimeout = d
	return c
}

// WithExclusive returns a copy of c that does or does not claim the
// device exclusively.
func (c Config) WithExclusive(exclusive bool) Config {
	c.Exclusive = exclusive
	return c
}

// Open opens the port described by c.
func (c Config) Open() (*Serial, error) { return Open(c) }

// String renders the configuration as device@baud,8N1.
func (c Config) String() string {
	c = c.normalize()
	return fmt.Sprintf("%s@%d,%s%s%s", c.Device, c.BaudRate, c.DataBits, c.Parity, c.StopBits)
}

func (c Config) normalize() Config {
	if c.DataBits == 0 {
		c.DataBits = DataBits8
	}
	if c.StopBits == 0 {
		c.StopBits = StopBits1
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.Device == "":
		return errors.New("empty device name")
	case c.BaudRate == 0:
		return errors.New("baud rate must be positive")
	case c.DataBits < DataBits5 || c.DataBits > DataBits8:
		return fmt.Errorf("unsupported data bits %d", c.DataBits)
	case c.Parity > ParityEven:
		return fmt.Errorf("unsupported parity %s", c.Parity)
	case c.StopBits != StopBits1 && c.StopBits != StopBits2:
		return fmt.Errorf("unsupported stop bits %d", c.StopBits)
	case c.FlowControl > FlowHardware:
		return fmt.Errorf("unsupported flow control %s", c.FlowControl)
	}
	return nil
}
