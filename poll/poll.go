// Package poll implements an edge-triggered readiness poller on top of
// epoll (Linux), kqueue (Darwin, FreeBSD) and I/O completion ports (Windows).
//
// A Poll owns the OS facility. Sources are attached through its Registry and
// report readiness as Events tagged with the caller's Token. Delivery is
// edge-triggered: after an event the caller must keep reading (or writing)
// until the source returns a would-block error, or later events for the same
// condition may never arrive.
//
//	p, err := poll.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	err = p.Registry().Register(port, 0, poll.Readable)
//	events := poll.NewEvents(64)
//	for {
//	    if err := p.Poll(events, -1); err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, ev := range events.All() {
//	        // drain the source for ev.Token()
//	    }
//	}
package poll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Token identifies a registered source in the events it produces.
type Token uint64

// Ready is a set of readiness conditions. As an interest mask only Readable
// and Writable are meaningful; the closed and error conditions are always
// reported.
type Ready uint8

const (
	Readable Ready = 1 << iota
	Writable
	ReadClosed
	WriteClosed
	Error
)

var (
	// ErrInvalidInterest is returned when an interest contains neither
	// Readable nor Writable.
	ErrInvalidInterest = errors.New("poll: interest must include readable or writable")
	// ErrClosed is returned when using a closed Poll.
	ErrClosed = errors.New("poll: closed")
)

func (r Ready) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		bit  Ready
		name string
	}{
		{Readable, "readable"},
		{Writable, "writable"},
		{ReadClosed, "read_closed"},
		{WriteClosed, "write_closed"},
		{Error, "error"},
	} {
		if r&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

func (r Ready) valid() bool {
	return r&(Readable|Writable) != 0
}

// Event is a readiness notification for one source.
type Event struct {
	token Token
	ready Ready
}

// NewEvent builds an event. It is meant for backends living outside this
// package, such as the serial port adapter on Windows.
func NewEvent(token Token, ready Ready) Event {
	return Event{token: token, ready: ready}
}

// Token returns the token the source was registered with.
func (e Event) Token() Token { return e.token }

// Readiness returns the full set of conditions reported.
func (e Event) Readiness() Ready { return e.ready }

// IsReadable reports whether the source can be read without blocking.
func (e Event) IsReadable() bool { return e.ready&Readable != 0 }

// IsWritable reports whether the source can be written without blocking.
func (e Event) IsWritable() bool { return e.ready&Writable != 0 }

// IsReadClosed reports a hang-up on the read side.
func (e Event) IsReadClosed() bool { return e.ready&ReadClosed != 0 }

// IsWriteClosed reports a hang-up on the write side.
func (e Event) IsWriteClosed() bool { return e.ready&WriteClosed != 0 }

// IsError reports an error condition on the source.
func (e Event) IsError() bool { return e.ready&Error != 0 }
func (e Event) String() string { return fmt.Sprintf("token=%d %s", e.token, e.ready) }

// Events is a reusable batch of events filled by Poll.Poll.
type Events struct {
	list []Event
}

// NewEvents creates a batch that holds at most capacity events per poll.
func NewEvents(capacity int) *Events {
	if capacity < 1 {
		capacity = 1
	}
	return &Events{list: make([]Event, 0, capacity)}
}

// Len returns the number of events filled by the last poll.
func (e *Events) Len() int { return len(e.list) }

// IsEmpty reports whether the last poll returned no events.
func (e *Events) IsEmpty() bool { return len(e.list) == 0 }

// Capacity is the most events one poll can return.
func (e *Events) Capacity() int { return cap(e.list) }

// All returns the events of the last poll. The slice is reused.
func (e *Events) All() []Event { return e.list }

// Clear empties the batch.
func (e *Events) Clear() { e.list = e.list[:0] }

func (e *Events) full() bool { return len(e.list) == cap(e.list) }

func (e *Events) push(ev Event) { e.list = append(e.list, ev) }

// Source is anything that can be attached to a Registry.
//
// Implementations forward their OS handle to the registry's backend. The
// Registry methods of the same name are the entry points callers use; they
// validate arguments and then call into the source.
type Source interface {
	Register(r *Registry, token Token, interest Ready) error
	Reregister(r *Registry, token Token, interest Ready) error
	Deregister(r *Registry) error
}

// Registry is the table of sources attached to one Poll.
type Registry struct {
	sel *selector
	id  uuid.UUID
	log *logrus.Entry
}

// ID identifies the registry in logs and errors.
func (r *Registry) ID() uuid.UUID { return r.id }

func (r *Registry) String() string { return "registry " + r.id.String() }

// Register attaches src with the given token and interest.
func (r *Registry) Register(src Source, token Token, interest Ready) error {
	if !interest.valid() {
		return ErrInvalidInterest
	}
	r.log.WithFields(logrus.Fields{"token": token, "interest": interest}).Debug("register")
	return src.Register(r, token, interest)
}

// Reregister changes the token or interest of an attached source. Events
// already extracted may still carry the previous token.
func (r *Registry) Reregister(src Source, token Token, interest Ready) error {
	if !interest.valid() {
		return ErrInvalidInterest
	}
	r.log.WithFields(logrus.Fields{"token": token, "interest": interest}).Debug("reregister")
	return src.Reregister(r, token, interest)
}

// Deregister detaches src. Later polls produce no events for it.
func (r *Registry) Deregister(src Source) error {
	r.log.Debug("deregister")
	return src.Deregister(r)
}

// Poll waits for readiness events on the sources of its Registry.
type Poll struct {
	registry Registry
}

// New creates a poller backed by the platform readiness facility.
func New() (*Poll, error) {
	sel, err := newSelector()
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	return &Poll{registry: Registry{
		sel: sel,
		id:  id,
		log: logrus.WithFields(logrus.Fields{"pkg": "poll", "registry": id.String()}),
	}}, nil
}

// SetLogger replaces the logger. Call it before sharing the Poll.
func (p *Poll) SetLogger(log *logrus.Entry) {
	p.registry.log = log.WithField("registry", p.registry.id.String())
}

// Registry returns the registry sources are attached to.
func (p *Poll) Registry() *Registry { return &p.registry }

// Poll clears events and fills it with ready events, blocking up to timeout.
// A negative timeout blocks until at least one event arrives. Timeouts are
// rounded up to whole milliseconds. An interrupted wait returns no events
// and no error.
func (p *Poll) Poll(events *Events, timeout time.Duration) error {
	events.Clear()
	return p.registry.sel.wait(events, timeout)
}

// Close releases the OS facility. Registered sources are not closed.
func (p *Poll) Close() error {
	return p.registry.sel.close()
}

// timeoutMillis converts timeout for the OS wait call, -1 meaning forever.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	if ms > 1<<31-1 {
		ms = 1<<31 - 1
	}
	return int(ms)
}
