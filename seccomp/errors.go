package seccomp

import "errors"

// Sentinel errors returned by the seccomp package. Kernel failures are
// returned as wrapped golang.org/x/sys/unix.Errno values instead.
var (
	// ErrFinished indicates the builder was already finalized.
	ErrFinished = errors.New("seccomp: builder already finished")

	// ErrNotFound indicates no category is registered under the given name.
	ErrNotFound = errors.New("seccomp: category not found")

	// ErrTooLarge indicates the program exceeds the largest instruction
	// count a filter can carry.
	ErrTooLarge = errors.New("seccomp: program too large")

	// ErrInvalidRange indicates a syscall range whose lower bound exceeds
	// its upper bound.
	ErrInvalidRange = errors.New("seccomp: invalid syscall range")

	// ErrClosed indicates the program was released with Close.
	ErrClosed = errors.New("seccomp: program closed")

	// ErrSync indicates another thread could not be synchronized to the
	// filter when installing it on all threads.
	ErrSync = errors.New("seccomp: thread synchronization failed")
)
