package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePortName(t *testing.T) {
	tests := map[string]string{
		"COM1":             `\\.\COM1`,
		"COM12":            `\\.\COM12`,
		`\\.\COM3`:         `\\.\COM3`,
		`\\?\usb#vid_0403`: `\\?\usb#vid_0403`,
		`C:\dev\port`:      `C:\dev\port`,
		"/dev/ttyUSB0":     "/dev/ttyUSB0",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePortName(in), in)
	}
}
