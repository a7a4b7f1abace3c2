package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New("/dev/ttyUSB0", 115200)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, uint32(115200), cfg.BaudRate)
	assert.Equal(t, DataBits8, cfg.DataBits)
	assert.Equal(t, ParityNone, cfg.Parity)
	assert.Equal(t, StopBits1, cfg.StopBits)
	assert.Equal(t, FlowNone, cfg.FlowControl)
	assert.Zero(t, cfg.ReadTimeout)
	assert.True(t, cfg.Exclusive)
	assert.Equal(t, "/dev/ttyUSB0@115200,8N1", cfg.String())
}

func TestConfig_Builders(t *testing.T) {
	base := New("COM3", 9600)
	cfg := base.
		WithDevice("COM4").
		WithBaudRate(19200).
		WithDataBits(DataBits7).
		WithParity(ParityOdd).
		WithStopBits(StopBits2).
		WithFlowControl(FlowHardware).
		WithReadTimeout(time.Second).
		WithExclusive(false)

	assert.Equal(t, "COM4@19200,7O2", cfg.String())
	assert.Equal(t, FlowHardware, cfg.FlowControl)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.False(t, cfg.Exclusive)

	// value receivers: the base is untouched
	assert.Equal(t, "COM3@9600,8N1", base.String())
	assert.True(t, base.Exclusive)
}

func TestConfig_ZeroValueNormalizes(t *testing.T) {
	cfg := Config{Device: "/dev/ttyS0", BaudRate: 4800}
	assert.Equal(t, "/dev/ttyS0@4800,8N1", cfg.String())
	require.NoError(t, cfg.normalize().validate())
	require.Error(t, cfg.validate(), "zero data bits only pass after normalize")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", New("/dev/ttyS0", 9600), true},
		{"empty device", New("", 9600), false},
		{"zero baud", New("/dev/ttyS0", 0), false},
		{"odd baud", New("/dev/ttyS0", 31250), true},
		{"five data bits", New("/dev/ttyS0", 9600).WithDataBits(DataBits5), true},
		{"four data bits", New("/dev/ttyS0", 9600).WithDataBits(4), false},
		{"nine data bits", New("/dev/ttyS0", 9600).WithDataBits(9), false},
		{"bad parity", New("/dev/ttyS0", 9600).WithParity(3), false},
		{"three stop bits", New("/dev/ttyS0", 9600).WithStopBits(3), false},
		{"bad flow control", New("/dev/ttyS0", 9600).WithFlowControl(7), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestConfig_OpenInvalid(t *testing.T) {
	port, err := New("", 9600).Open()
	require.Nil(t, port)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, InvalidInput, KindOf(err))
}

func TestLineSettingStrings(t *testing.T) {
	assert.Equal(t, "E", ParityEven.String())
	assert.Equal(t, "Parity(9)", Parity(9).String())
	assert.Equal(t, "software", FlowSoftware.String())
	assert.Equal(t, "FlowControl(5)", FlowControl(5).String())
	assert.Equal(t, "2", StopBits2.String())
	assert.Equal(t, "6", DataBits6.String())
}
