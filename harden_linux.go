//go:build linux && amd64

package jailkit

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/rawsys"
)

// Function variables for kernel calls, overridden in tests.
var (
	setNoNewPrivsFn = rawsys.SetNoNewPrivs
	noNewPrivsFn    = rawsys.NoNewPrivs
	prctlFn         = rawsys.Prctl
	setrlimitFn     = unix.Setrlimit
)

// SetNoNewPrivs sets no_new_privs on every thread of the process. Once set,
// execve can no longer grant privileges (setuid bits, file capabilities),
// which lets an unprivileged process install seccomp filters and Landlock
// rulesets. It cannot be cleared.
func SetNoNewPrivs() error {
	if r := setNoNewPrivsFn(); rawsys.IsError(r) {
		return fmt.Errorf("prctl(PR_SET_NO_NEW_PRIVS): %w", rawsys.Err(r))
	}
	return nil
}

// HasNoNewPrivs reports whether no_new_privs is set on the calling thread.
func HasNoNewPrivs() bool {
	return noNewPrivsFn() == 1
}

// Harden sets no_new_privs, marks the process non-dumpable and sets
// RLIMIT_CORE to 0, so it cannot gain privileges, be ptrace-attached by
// its peers or leave core files behind.
func Harden() error {
	if err := SetNoNewPrivs(); err != nil {
		return err
	}
	if r := prctlFn(unix.PR_SET_DUMPABLE, 0, 0, 0, 0); rawsys.IsError(r) {
		return fmt.Errorf("prctl(PR_SET_DUMPABLE): %w", rawsys.Err(r))
	}
	rlimit := unix.Rlimit{Cur: 0, Max: 0}
	if err := setrlimitFn(unix.RLIMIT_CORE, &rlimit); err != nil {
		return fmt.Errorf("setrlimit(RLIMIT_CORE): %w", err)
	}
	return nil
}
