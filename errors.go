package jailkit

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/zhangyunhao116/jailkit/landlock"
	"github.com/zhangyunhao116/jailkit/seccomp"
)

// Sentinel errors returned by the jailkit package.
var (
	// ErrUnsupportedPlatform indicates the current OS/architecture is not supported.
	ErrUnsupportedPlatform = errors.New("jailkit: unsupported platform")

	// ErrConfigInvalid indicates the provided policy failed validation.
	ErrConfigInvalid = errors.New("jailkit: invalid policy")

	// ErrNoCommand indicates a command name was empty.
	ErrNoCommand = errors.New("jailkit: no command")
)

// Codes for failures that do not come from the kernel. They are larger than
// any errno so a Code value is unambiguous.
const (
	CodeFinished = 4096 + iota
	CodeNotFound
	CodeTooLarge
	CodeApplied
	CodeClosed
	CodeInvalid
	CodeUnknown
)

// Code maps err to a single integer: the errno magnitude for kernel
// failures, one of the Code constants otherwise, and 0 for nil.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	switch {
	case errors.Is(err, seccomp.ErrFinished):
		return CodeFinished
	case errors.Is(err, seccomp.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, seccomp.ErrTooLarge):
		return CodeTooLarge
	case errors.Is(err, landlock.ErrApplied):
		return CodeApplied
	case errors.Is(err, landlock.ErrClosed), errors.Is(err, seccomp.ErrClosed):
		return CodeClosed
	case errors.Is(err, ErrConfigInvalid), errors.Is(err, landlock.ErrInvalidAccess),
		errors.Is(err, seccomp.ErrInvalidRange):
		return CodeInvalid
	}
	return CodeUnknown
}

// StageError reports which step of Apply failed. Restrictions from earlier
// stages remain in force.
type StageError struct {
	// Stage is one of "no_new_privs", "landlock" or "seccomp".
	Stage string
	// Err is the underlying failure.
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("jailkit: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
