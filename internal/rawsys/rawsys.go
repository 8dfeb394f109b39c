//go:build linux && amd64

// Package rawsys invokes the kernel's call-by-number ABI and hands back the
// raw result.
//
// A raw result is the machine word the kernel leaves in the return register:
// a non-negative value on success, or -errno in [-4095, -1] on failure.
// Nothing in this package classifies a result on behalf of the caller; use
// IsError and Err for that.
//
// The register-level trap is delegated to golang.org/x/sys/unix, which also
// informs the Go scheduler that the thread may block. Only that package
// knows which registers carry the call number, arguments and result.
package rawsys

import (
	"golang.org/x/sys/unix"
)

// MaxErrno is the largest errno magnitude encoded in a raw result.
const MaxErrno = 4095

// Function variables for the trap, overridden in tests.
var (
	trap  = unix.Syscall
	trap6 = unix.Syscall6
)

// raw rebuilds the kernel's return word from the decoded triple produced by
// the x/sys trampolines.
func raw(r1, _ uintptr, errno unix.Errno) int {
	if errno != 0 {
		return -int(errno)
	}
	return int(r1)
}

// Syscall0 invokes system call nr without arguments.
func Syscall0(nr uintptr) int {
	return raw(trap(nr, 0, 0, 0))
}

// Syscall1 invokes system call nr with one argument.
func Syscall1(nr, a1 uintptr) int {
	return raw(trap(nr, a1, 0, 0))
}

// Syscall2 invokes system call nr with two arguments.
func Syscall2(nr, a1, a2 uintptr) int {
	return raw(trap(nr, a1, a2, 0))
}

// Syscall3 invokes system call nr with three arguments.
func Syscall3(nr, a1, a2, a3 uintptr) int {
	return raw(trap(nr, a1, a2, a3))
}

// Syscall4 invokes system call nr with four arguments.
func Syscall4(nr, a1, a2, a3, a4 uintptr) int {
	return raw(trap6(nr, a1, a2, a3, a4, 0, 0))
}

// Syscall5 invokes system call nr with five arguments.
func Syscall5(nr, a1, a2, a3, a4, a5 uintptr) int {
	return raw(trap6(nr, a1, a2, a3, a4, a5, 0))
}

// Syscall6 invokes system call nr with six arguments.
//
// The generic SyscallN family takes machine words only. A call that passes
// a Go pointer must use one of the typed wrappers in this package so the
// pointer conversion happens inside the trampoline call expression.
func Syscall6(nr, a1, a2, a3, a4, a5, a6 uintptr) int {
	return raw(trap6(nr, a1, a2, a3, a4, a5, a6))
}

// IsError reports whether r encodes -errno.
func IsError(r int) bool {
	return r < 0 && r >= -MaxErrno
}

// Errno returns the errno magnitude carried by r, or 0 when r is a success
// value.
func Errno(r int) unix.Errno {
	if !IsError(r) {
		return 0
	}
	return unix.Errno(-r)
}

// Err converts a raw result into an error: nil on success, the matching
// unix.Errno otherwise.
func Err(r int) error {
	if e := Errno(r); e != 0 {
		return e
	}
	return nil
}
