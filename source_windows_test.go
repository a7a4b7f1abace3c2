//go:build windows

package serial

import (
	"testing"

	"github.com/luhtfiimanal/go-serial-poll/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestRegister_RollsBackWhenPostFails(t *testing.T) {
	p, err := poll.New()
	require.NoError(t, err)

	// any live handle will do: the port is already marked as associated, so
	// only the writable post touches the completion port
	ev, err := windows.CreateEvent(nil, 1, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { windows.CloseHandle(ev) })

	s := &Serial{h: ev, cfg: New("COM99", 9600), associated: p.Registry()}
	s.waitOp = poll.NewOperation(s.waitDone)
	require.NoError(t, p.Close())

	err = p.Registry().Register(s, 7, poll.Writable)
	require.Error(t, err)
	assert.Nil(t, s.registry)
	assert.Zero(t, s.token)
	assert.Zero(t, s.interest)

	// the failed attempt left nothing behind to deregister
	require.ErrorIs(t, p.Registry().Deregister(s), ErrNotRegistered)
}
