//go:build linux && amd64

// Package owned provides single-owner handles for kernel resources: open
// file descriptors and anonymous memory mappings.
//
// A handle is released exactly once. Ownership moves with Move, leaves with
// Disown, and Close is safe to call on an empty or already released handle,
// so callers can always defer it right after acquisition.
package owned

import (
	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/rawsys"
)

// emptyFD is the sentinel stored by an FD that owns nothing.
const emptyFD = -1

// closeFn is overridden in tests to observe releases.
var closeFn = rawsys.Close

// FD owns one open file descriptor. The zero value owns nothing; use NewFD
// or OpenAt to obtain a handle that does.
type FD struct {
	fd  int
	set bool
}

// NewFD takes ownership of fd. A negative fd yields an empty handle.
func NewFD(fd int) FD {
	if fd < 0 {
		return FD{fd: emptyFD}
	}
	return FD{fd: fd, set: true}
}

// Int returns the descriptor without giving up ownership, or -1 if the
// handle is empty.
func (f *FD) Int() int {
	if !f.set {
		return emptyFD
	}
	return f.fd
}

// Valid reports whether the handle owns a descriptor.
func (f *FD) Valid() bool {
	return f.set
}

// Disown returns the descriptor and empties the handle. The caller becomes
// responsible for closing it.
func (f *FD) Disown() int {
	fd := f.Int()
	f.fd, f.set = emptyFD, false
	return fd
}

// Move transfers ownership to the returned handle and empties f.
func (f *FD) Move() FD {
	return NewFD(f.Disown())
}

// Reset releases the descriptor currently owned by f, if any, then takes
// ownership of fd.
func (f *FD) Reset(fd int) error {
	err := f.Close()
	*f = NewFD(fd)
	return err
}

// Close releases the descriptor. Closing an empty handle is a no-op.
func (f *FD) Close() error {
	if !f.set {
		return nil
	}
	fd := f.Disown()
	return rawsys.Err(closeFn(fd))
}

// OpenAt opens path relative to dir and returns an owning handle. On failure
// the error is the negated kernel result as a unix.Errno.
func OpenAt(dir int, path string, flags int, mode uint32) (FD, error) {
	r := rawsys.Openat(dir, path, flags|unix.O_CLOEXEC, mode)
	if rawsys.IsError(r) {
		return FD{fd: emptyFD}, rawsys.Err(r)
	}
	return NewFD(r), nil
}

// OpenAtRestart is OpenAt restarted on EINTR.
func OpenAtRestart(dir int, path string, flags int, mode uint32) (FD, error) {
	r := rawsys.OpenatRestart(dir, path, flags|unix.O_CLOEXEC, mode)
	if rawsys.IsError(r) {
		return FD{fd: emptyFD}, rawsys.Err(r)
	}
	return NewFD(r), nil
}
