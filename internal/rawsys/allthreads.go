//go:build linux && amd64

package rawsys

import (
	"golang.org/x/sys/unix"
	"kernel.org/pub/linux/libs/security/libcap/psx"
)

// Function variables for the all-thread trap, overridden in tests.
var (
	allThreads3 = psx.Syscall3
	allThreads6 = psx.Syscall6
)

// AllThreadsSyscall3 invokes nr on every OS thread of the process and
// returns the raw result. The Go runtime multiplexes goroutines over several
// threads, so process attributes that the kernel tracks per thread
// (no_new_privs, Landlock domains) must be set on all of them.
func AllThreadsSyscall3(nr, a1, a2, a3 uintptr) int {
	return raw(allThreads3(nr, a1, a2, a3))
}

// AllThreadsSyscall6 is AllThreadsSyscall3 with six arguments.
func AllThreadsSyscall6(nr, a1, a2, a3, a4, a5, a6 uintptr) int {
	return raw(allThreads6(nr, a1, a2, a3, a4, a5, a6))
}

// SetNoNewPrivs sets PR_SET_NO_NEW_PRIVS on every thread.
func SetNoNewPrivs() int {
	return AllThreadsSyscall6(unix.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0, 0)
}

// NoNewPrivs queries PR_GET_NO_NEW_PRIVS for the calling thread.
func NoNewPrivs() int {
	return Prctl(unix.PR_GET_NO_NEW_PRIVS, 0, 0, 0, 0)
}

// LandlockRestrictSelfAllThreads enforces a ruleset on every thread.
func LandlockRestrictSelfAllThreads(rulesetFd int, flags uint32) int {
	return AllThreadsSyscall3(unix.SYS_LANDLOCK_RESTRICT_SELF, uintptr(rulesetFd), uintptr(flags), 0)
}
