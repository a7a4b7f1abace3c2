package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Op: "open", Device: "/dev/ttyS9", Kind: NotFound, Err: cause}

	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDeviceBusy)
	assert.NotErrorIs(t, err, ErrWouldBlock)

	wrapped := fmt.Errorf("connect: %w", err)
	require.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, NotFound, KindOf(wrapped))

	// only bare sentinels match by kind
	other := &Error{Op: "read", Kind: NotFound}
	assert.NotErrorIs(t, err, other)
}

func TestError_Message(t *testing.T) {
	err := &Error{Op: "open", Device: "/dev/ttyS9", Kind: NotFound, Err: errors.New("no such file or directory")}
	assert.Equal(t, "serial open /dev/ttyS9: no such file or directory", err.Error())
	assert.Equal(t, "serial: operation would block", ErrWouldBlock.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, WouldBlock, KindOf(ErrWouldBlock))
	assert.Equal(t, UnexpectedEOF, KindOf(io.EOF))
	assert.Equal(t, UnexpectedEOF, KindOf(io.ErrUnexpectedEOF))
	assert.Equal(t, Other, KindOf(errors.New("x")))
	assert.Equal(t, Other, KindOf(closedError("read", "/dev/ttyS0")))
	assert.Equal(t, "other error", ErrorKind(42).String())
}

func TestClosedError(t *testing.T) {
	err := closedError("write", "/dev/ttyS0")
	require.ErrorIs(t, err, os.ErrClosed)
	assert.Contains(t, err.Error(), "write /dev/ttyS0")
}
