//go:build linux || darwin || freebsd

package poll

// RegisterFd attaches a raw file descriptor. The descriptor should already be
// in non-blocking mode; readiness is reported edge-triggered.
func (r *Registry) RegisterFd(fd int, token Token, interest Ready) error {
	if !interest.valid() {
		return ErrInvalidInterest
	}
	return r.sel.register(fd, token, interest)
}

// ReregisterFd changes the token or interest of an attached descriptor.
func (r *Registry) ReregisterFd(fd int, token Token, interest Ready) error {
	if !interest.valid() {
		return ErrInvalidInterest
	}
	return r.sel.reregister(fd, token, interest)
}

// DeregisterFd detaches a descriptor. It fails if fd is not attached.
func (r *Registry) DeregisterFd(fd int) error {
	return r.sel.deregister(fd)
}

// SourceFd adapts a raw file descriptor the caller owns into a Source.
type SourceFd int

func (fd SourceFd) Register(r *Registry, token Token, interest Ready) error {
	return r.RegisterFd(int(fd), token, interest)
}

func (fd SourceFd) Reregister(r *Registry, token Token, interest Ready) error {
	return r.ReregisterFd(int(fd), token, interest)
}

func (fd SourceFd) Deregister(r *Registry) error {
	return r.DeregisterFd(int(fd))
}
