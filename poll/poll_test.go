//go:build linux || darwin || freebsd

package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	p := make([]int, 2)
	require.NoError(t, unix.Pipe(p))
	require.NoError(t, unix.SetNonblock(p[0], true))
	require.NoError(t, unix.SetNonblock(p[1], true))
	t.Cleanup(func() { unix.Close(p[0]); unix.Close(p[1]) })
	return p[0], p[1]
}

func newPoll(t *testing.T) *Poll {
	t.Helper()
	p, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestReadyString(t *testing.T) {
	assert.Equal(t, "none", Ready(0).String())
	assert.Equal(t, "readable", Readable.String())
	assert.Equal(t, "readable|read_closed|error", (Readable | ReadClosed | Error).String())
	assert.Equal(t, "token=3 writable|write_closed", NewEvent(3, Writable|WriteClosed).String())
}

func TestTimeoutMillis(t *testing.T) {
	assert.Equal(t, -1, timeoutMillis(-1))
	assert.Equal(t, 0, timeoutMillis(0))
	assert.Equal(t, 1, timeoutMillis(time.Microsecond))
	assert.Equal(t, 2, timeoutMillis(1500*time.Microsecond))
	assert.Equal(t, 1000, timeoutMillis(time.Second))
}

func TestEventsCapacity(t *testing.T) {
	events := NewEvents(0)
	assert.Equal(t, 1, events.Capacity())
	assert.True(t, events.IsEmpty())
	events.push(NewEvent(1, Readable))
	assert.True(t, events.full())
	events.Clear()
	assert.Equal(t, 0, events.Len())
}

func TestRegister_InvalidInterest(t *testing.T) {
	p := newPoll(t)
	r, _ := newPipe(t)
	require.ErrorIs(t, p.Registry().Register(SourceFd(r), 0, Error), ErrInvalidInterest)
	require.ErrorIs(t, p.Registry().RegisterFd(r, 0, 0), ErrInvalidInterest)
}

func TestPoll_ReadableEdgeTriggered(t *testing.T) {
	p := newPoll(t)
	r, w := newPipe(t)
	require.NoError(t, p.Registry().Register(SourceFd(r), 7, Readable))

	_, err := unix.Write(w, []byte("abc"))
	require.NoError(t, err)

	events := NewEvents(8)
	require.NoError(t, p.Poll(events, time.Second))
	require.Equal(t, 1, events.Len())
	ev := events.All()[0]
	require.Equal(t, Token(7), ev.Token())
	require.True(t, ev.IsReadable())
	require.False(t, ev.IsWritable())

	// nothing new arrived, so no second edge
	require.NoError(t, p.Poll(events, 20*time.Millisecond))
	require.True(t, events.IsEmpty())

	buf := make([]byte, 16)
	n, err := unix.Read(r, buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))
	_, err = unix.Read(r, buf)
	require.Equal(t, unix.EAGAIN, err)
}

func TestPoll_AlreadyReadableOnRegister(t *testing.T) {
	p := newPoll(t)
	r, w := newPipe(t)
	_, err := unix.Write(w, []byte{1})
	require.NoError(t, err)

	require.NoError(t, p.Registry().Register(SourceFd(r), 1, Readable))
	events := NewEvents(8)
	require.NoError(t, p.Poll(events, time.Second))
	require.Equal(t, 1, events.Len())
	require.True(t, events.All()[0].IsReadable())
}

func TestPoll_Writable(t *testing.T) {
	p := newPoll(t)
	_, w := newPipe(t)
	require.NoError(t, p.Registry().Register(SourceFd(w), 2, Writable))

	events := NewEvents(8)
	require.NoError(t, p.Poll(events, time.Second))
	require.Equal(t, 1, events.Len())
	require.Equal(t, Token(2), events.All()[0].Token())
	require.True(t, events.All()[0].IsWritable())
}

func TestPoll_ReadClosed(t *testing.T) {
	p := newPoll(t)
	r, w := newPipe(t)
	require.NoError(t, p.Registry().Register(SourceFd(r), 3, Readable))
	require.NoError(t, unix.Close(w))

	events := NewEvents(8)
	require.NoError(t, p.Poll(events, time.Second))
	require.Equal(t, 1, events.Len())
	require.True(t, events.All()[0].IsReadClosed())
}

func TestPoll_ReregisterSwapsToken(t *testing.T) {
	p := newPoll(t)
	r, w := newPipe(t)
	reg := p.Registry()
	require.NoError(t, reg.Register(SourceFd(r), 1, Readable))
	require.NoError(t, reg.Reregister(SourceFd(r), 2, Readable))

	_, err := unix.Write(w, []byte("x"))
	require.NoError(t, err)

	events := NewEvents(8)
	require.NoError(t, p.Poll(events, time.Second))
	require.Equal(t, 1, events.Len())
	require.Equal(t, Token(2), events.All()[0].Token())
}

func TestPoll_DeregisterSilences(t *testing.T) {
	p := newPoll(t)
	r, w := newPipe(t)
	reg := p.Registry()
	require.NoError(t, reg.Register(SourceFd(r), 1, Readable))
	_, err := unix.Write(w, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, reg.Deregister(SourceFd(r)))

	_, err = unix.Write(w, []byte("y"))
	require.NoError(t, err)

	events := NewEvents(8)
	require.NoError(t, p.Poll(events, 50*time.Millisecond))
	require.True(t, events.IsEmpty())

	// deregistering twice fails, and the token may be reused
	require.Error(t, reg.Deregister(SourceFd(r)))
	require.NoError(t, reg.Register(SourceFd(r), 1, Readable))
}

func TestPoll_DoubleRegisterFails(t *testing.T) {
	p := newPoll(t)
	r, _ := newPipe(t)
	require.NoError(t, p.Registry().RegisterFd(r, 1, Readable))
	require.Error(t, p.Registry().RegisterFd(r, 1, Readable))
}

func TestPoll_Timeout(t *testing.T) {
	p := newPoll(t)
	events := NewEvents(8)
	start := time.Now()
	require.NoError(t, p.Poll(events, 30*time.Millisecond))
	require.True(t, events.IsEmpty())
	require.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestWaker(t *testing.T) {
	p := newPoll(t)
	w, err := NewWaker(p.Registry(), 99)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	go func() {
		time.Sleep(20 * time.Millisecond)
		w.Wake()
	}()

	events := NewEvents(8)
	done := make(chan error, 1)
	go func() { done <- p.Poll(events, -1) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for waker")
	}
	require.Equal(t, 1, events.Len())
	require.Equal(t, Token(99), events.All()[0].Token())
	require.True(t, events.All()[0].IsReadable())
}

func TestClose_Twice(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Close(), ErrClosed)
}
