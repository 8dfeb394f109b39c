//go:build linux && amd64

package rawsys

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// cstring returns a NUL-terminated copy of s, or -EINVAL when s already
// contains a NUL byte.
func cstring(s string) (*byte, int) {
	p, err := unix.BytePtrFromString(s)
	if err != nil {
		return nil, -int(unix.EINVAL)
	}
	return p, 0
}

// Open invokes open(2).
func Open(path string, flags int, mode uint32) int {
	p, r := cstring(path)
	if p == nil {
		return r
	}
	return raw(unix.Syscall(unix.SYS_OPEN, uintptr(unsafe.Pointer(p)), uintptr(flags), uintptr(mode)))
}

// OpenRestart is Open restarted on EINTR.
func OpenRestart(path string, flags int, mode uint32) int {
	return Restart(func() int { return Open(path, flags, mode) })
}

// Openat invokes openat(2).
func Openat(dirfd int, path string, flags int, mode uint32) int {
	p, r := cstring(path)
	if p == nil {
		return r
	}
	return raw(unix.Syscall6(unix.SYS_OPENAT, uintptr(dirfd), uintptr(unsafe.Pointer(p)), uintptr(flags), uintptr(mode), 0, 0))
}

// OpenatRestart is Openat restarted on EINTR.
func OpenatRestart(dirfd int, path string, flags int, mode uint32) int {
	return Restart(func() int { return Openat(dirfd, path, flags, mode) })
}

// Read invokes read(2).
func Read(fd int, buf []byte) int {
	var p unsafe.Pointer
	if len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	return raw(unix.Syscall(unix.SYS_READ, uintptr(fd), uintptr(p), uintptr(len(buf))))
}

// ReadRestart is Read restarted on EINTR.
func ReadRestart(fd int, buf []byte) int {
	return Restart(func() int { return Read(fd, buf) })
}

// Write invokes write(2).
func Write(fd int, buf []byte) int {
	var p unsafe.Pointer
	if len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	return raw(unix.Syscall(unix.SYS_WRITE, uintptr(fd), uintptr(p), uintptr(len(buf))))
}

// WriteRestart is Write restarted on EINTR.
func WriteRestart(fd int, buf []byte) int {
	return Restart(func() int { return Write(fd, buf) })
}

// Writev invokes writev(2) with one iovec per buffer.
func Writev(fd int, bufs ...[]byte) int {
	iovs := make([]unix.Iovec, 0, len(bufs))
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		iov := unix.Iovec{Base: &b[0]}
		iov.SetLen(len(b))
		iovs = append(iovs, iov)
	}
	var p unsafe.Pointer
	if len(iovs) > 0 {
		p = unsafe.Pointer(&iovs[0])
	}
	return raw(unix.Syscall(unix.SYS_WRITEV, uintptr(fd), uintptr(p), uintptr(len(iovs))))
}

// WritevRestart is Writev restarted on EINTR.
func WritevRestart(fd int, bufs ...[]byte) int {
	return Restart(func() int { return Writev(fd, bufs...) })
}

// Close invokes close(2). It is never restarted: on Linux the descriptor is
// released even when close reports EINTR.
func Close(fd int) int {
	return Syscall1(unix.SYS_CLOSE, uintptr(fd))
}

// Getpid invokes getpid(2).
func Getpid() int {
	return Syscall0(unix.SYS_GETPID)
}

// Uname invokes uname(2).
func Uname(buf *unix.Utsname) int {
	return raw(unix.Syscall(unix.SYS_UNAME, uintptr(unsafe.Pointer(buf)), 0, 0))
}

// Mmap invokes mmap(2). The result is the mapping address or -errno.
func Mmap(addr uintptr, length uintptr, prot, flags, fd int, offset int64) int {
	return Syscall6(unix.SYS_MMAP, addr, length, uintptr(prot), uintptr(flags), uintptr(fd), uintptr(offset))
}

// Munmap invokes munmap(2).
func Munmap(addr, length uintptr) int {
	return Syscall2(unix.SYS_MUNMAP, addr, length)
}

// Mprotect invokes mprotect(2).
func Mprotect(addr, length uintptr, prot int) int {
	return Syscall3(unix.SYS_MPROTECT, addr, length, uintptr(prot))
}

// Prctl invokes prctl(2) on the calling thread.
func Prctl(option int, a2, a3, a4, a5 uintptr) int {
	return Syscall5(unix.SYS_PRCTL, uintptr(option), a2, a3, a4, a5)
}

// Seccomp invokes seccomp(2).
func Seccomp(op, flags uint, args unsafe.Pointer) int {
	return raw(unix.Syscall(unix.SYS_SECCOMP, uintptr(op), uintptr(flags), uintptr(args)))
}

// LandlockCreateRuleset invokes landlock_create_ruleset(2). A nil attr with
// size 0 is valid for LANDLOCK_CREATE_RULESET_VERSION queries.
func LandlockCreateRuleset(attr *unix.LandlockRulesetAttr, size uintptr, flags uint32) int {
	return raw(unix.Syscall(unix.SYS_LANDLOCK_CREATE_RULESET, uintptr(unsafe.Pointer(attr)), size, uintptr(flags)))
}

// LandlockAddRule invokes landlock_add_rule(2).
func LandlockAddRule(rulesetFd int, ruleType int, attr unsafe.Pointer, flags uint32) int {
	return raw(unix.Syscall6(unix.SYS_LANDLOCK_ADD_RULE, uintptr(rulesetFd), uintptr(ruleType), uintptr(attr), uintptr(flags), 0, 0))
}

// LandlockRestrictSelf invokes landlock_restrict_self(2) on the calling
// thread only.
func LandlockRestrictSelf(rulesetFd int, flags uint32) int {
	return Syscall2(unix.SYS_LANDLOCK_RESTRICT_SELF, uintptr(rulesetFd), uintptr(flags))
}

// ExitGroup terminates every thread of the process with status.
func ExitGroup(status int) {
	Syscall1(unix.SYS_EXIT_GROUP, uintptr(status))
}
