//go:build windows

package poll

// Waker wakes a Poll blocked in another goroutine. Each Wake produces a
// readable event carrying the waker's token.
type Waker struct {
	token    Token
	registry *Registry
}

// NewWaker creates a waker attached to r under token.
func NewWaker(r *Registry, token Token) (*Waker, error) {
	return &Waker{token: token, registry: r}, nil
}

// Wake is safe to call from any goroutine.
func (w *Waker) Wake() error {
	op := NewOperation(func(uint32, error) (Event, bool) {
		return Event{token: w.token, ready: Readable}, true
	})
	return w.registry.Post(op)
}

func (w *Waker) Close() error { return nil }
