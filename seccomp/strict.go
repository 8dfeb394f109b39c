//go:build linux && amd64

package seccomp

import (
	"fmt"
	"slices"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/rawsys"
)

// stricterDefault allows what strict mode allows plus close and the stat
// family, the positional and iovec I/O variants, lseek, sendfile,
// exit_group, and close_range with zero flags.
var stricterDefault = slices.Concat(
	preamble(),
	allowRange(unix.SYS_READ, unix.SYS_WRITE),
	allowRange(unix.SYS_CLOSE, unix.SYS_LSTAT), // close, stat, fstat, lstat
	allowSyscall(unix.SYS_LSEEK),
	allowSyscall(unix.SYS_RT_SIGRETURN),
	allowRange(unix.SYS_PREAD64, unix.SYS_WRITEV),
	allowSyscall(unix.SYS_SENDFILE),
	allowSyscall(unix.SYS_EXIT),
	allowSyscall(unix.SYS_EXIT_GROUP),
	allowIfArgZero(unix.SYS_CLOSE_RANGE, 2),
	ret(KillProcess),
)

// StricterDefault returns the program installed by InstallStricterDefault.
func StricterDefault() []bpf.RawInstruction {
	return slices.Clone(stricterDefault)
}

// InstallStricterDefault installs a fixed filter on the calling OS thread
// that allows only basic I/O on open descriptors and exit. Any other
// syscall, including those made by the Go runtime, kills the process, so the
// caller must be ready to do nothing else but I/O and exit. The program's
// memory is not released: munmap is not allowed once it is installed.
func InstallStricterDefault() error {
	region, view, err := materialize(stricterDefault)
	if err != nil {
		return err
	}
	if err := view.Apply(); err != nil {
		_ = region.Close()
		return err
	}
	region.Disown()
	return nil
}

// NewStricterDefault returns a view of the stricter default program for
// callers that install it themselves, for example on all threads. Its
// memory is never released.
func NewStricterDefault() (ProgramView, error) {
	region, view, err := materialize(stricterDefault)
	if err != nil {
		return ProgramView{}, err
	}
	region.Disown()
	return view, nil
}

// SetStrictMode enters seccomp strict mode on the calling thread: only read,
// write, _exit and sigreturn remain available.
func SetStrictMode() error {
	if r := seccompFn(unix.SECCOMP_SET_MODE_STRICT, 0, nil); rawsys.IsError(r) {
		return fmt.Errorf("seccomp(SECCOMP_SET_MODE_STRICT): %w", rawsys.Err(r))
	}
	return nil
}
