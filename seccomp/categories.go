//go:build linux && amd64

package seccomp

import (
	"fmt"
	"slices"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// span is an inclusive range of x86_64 syscall numbers.
type span struct {
	lo, hi uint32
}

func one(nr uint32) span { return span{nr, nr} }

// category is a named group of syscalls allowed together.
type category struct {
	name  string
	desc  string
	spans []span
}

var categoryTable = []category{
	{
		name: "basic",
		desc: "memory mapping, signals, scheduling, sleep, futex, identity, exit",
		spans: []span{
			{unix.SYS_MMAP, unix.SYS_RT_SIGRETURN}, // mmap .. rt_sigreturn
			{unix.SYS_SCHED_YIELD, unix.SYS_MREMAP},
			one(unix.SYS_MADVISE),
			one(unix.SYS_NANOSLEEP),
			one(unix.SYS_GETPID),
			one(unix.SYS_EXIT),
			one(unix.SYS_GETUID),
			one(unix.SYS_GETGID),
			{unix.SYS_GETEUID, unix.SYS_GETEGID},
			one(unix.SYS_GETPPID),
			one(unix.SYS_SIGALTSTACK),
			one(unix.SYS_GETTID),
			one(unix.SYS_FUTEX),
			one(unix.SYS_SCHED_GETAFFINITY),
			one(unix.SYS_CLOCK_GETTIME),
			one(unix.SYS_CLOCK_NANOSLEEP),
			one(unix.SYS_EXIT_GROUP),
			one(unix.SYS_TGKILL),
		},
	},
	{
		name: "io",
		desc: "read/write family, close, seek, fstat, iovec and positional variants, fsync",
		spans: []span{
			{unix.SYS_READ, unix.SYS_WRITE},
			one(unix.SYS_CLOSE),
			one(unix.SYS_FSTAT),
			one(unix.SYS_LSEEK),
			{unix.SYS_PREAD64, unix.SYS_WRITEV},
			{unix.SYS_FSYNC, unix.SYS_FDATASYNC},
			{unix.SYS_PREADV, unix.SYS_PWRITEV},
			{unix.SYS_PREADV2, unix.SYS_PWRITEV2},
		},
	},
	{
		name: "fs",
		desc: "open, stat family, directory listing, readlink, access checks",
		spans: []span{
			one(unix.SYS_OPEN),
			one(unix.SYS_STAT),
			one(unix.SYS_LSTAT),
			one(unix.SYS_ACCESS),
			one(unix.SYS_READLINK),
			one(unix.SYS_GETDENTS64),
			one(unix.SYS_OPENAT),
			one(unix.SYS_NEWFSTATAT),
			one(unix.SYS_READLINKAT),
			one(unix.SYS_FACCESSAT),
			one(unix.SYS_STATX),
		},
	},
	{
		name: "fswrite",
		desc: "create, remove, rename, truncate and chmod files and directories",
		spans: []span{
			{unix.SYS_TRUNCATE, unix.SYS_FTRUNCATE},
			{unix.SYS_RENAME, unix.SYS_SYMLINK}, // rename .. symlink
			{unix.SYS_CHMOD, unix.SYS_FCHMOD},
			one(unix.SYS_MKDIRAT),
			{unix.SYS_UNLINKAT, unix.SYS_RENAMEAT},
			one(unix.SYS_FCHMODAT),
			one(unix.SYS_UTIMENSAT),
			one(unix.SYS_RENAMEAT2),
		},
	},
	{
		name: "time",
		desc: "clock and time queries",
		spans: []span{
			one(unix.SYS_GETTIMEOFDAY),
			one(unix.SYS_TIME),
			{unix.SYS_CLOCK_GETTIME, unix.SYS_CLOCK_GETRES},
		},
	},
	{
		name: "poll",
		desc: "poll, select, epoll, eventfd, pipes",
		spans: []span{
			one(unix.SYS_POLL),
			one(unix.SYS_SELECT),
			{unix.SYS_EPOLL_WAIT, unix.SYS_EPOLL_CTL},
			{unix.SYS_PSELECT6, unix.SYS_PPOLL},
			one(unix.SYS_EPOLL_PWAIT),
			{unix.SYS_EVENTFD2, unix.SYS_EPOLL_CREATE1},
			one(unix.SYS_PIPE2),
		},
	},
	{
		name: "net",
		desc: "socket creation, connection and message transfer",
		spans: []span{
			{unix.SYS_SOCKET, unix.SYS_GETSOCKOPT}, // socket .. getsockopt
			one(unix.SYS_ACCEPT4),
		},
	},
	{
		name: "exec",
		desc: "program execution",
		spans: []span{
			one(unix.SYS_EXECVE),
			one(unix.SYS_EXECVEAT),
		},
	},
	{
		name: "process",
		desc: "process startup, descriptors, limits, children and working directory",
		spans: []span{
			one(unix.SYS_IOCTL),
			{unix.SYS_DUP, unix.SYS_DUP2},
			{unix.SYS_CLONE, unix.SYS_VFORK}, // clone, fork, vfork
			{unix.SYS_WAIT4, unix.SYS_KILL},
			one(unix.SYS_UNAME),
			one(unix.SYS_FCNTL),
			{unix.SYS_GETCWD, unix.SYS_CHDIR},
			one(unix.SYS_UMASK),
			one(unix.SYS_GETRLIMIT),
			one(unix.SYS_ARCH_PRCTL),
			one(unix.SYS_SET_TID_ADDRESS),
			one(unix.SYS_SET_ROBUST_LIST),
			one(unix.SYS_DUP3),
			one(unix.SYS_PRLIMIT64),
			one(unix.SYS_GETRANDOM),
			one(unix.SYS_RSEQ),
			one(unix.SYS_CLONE3),
		},
	},
	{
		name: "sandbox",
		desc: "landlock, seccomp and prctl, for stacking further restrictions",
		spans: []span{
			one(unix.SYS_PRCTL),
			one(unix.SYS_SECCOMP),
			{unix.SYS_LANDLOCK_CREATE_RULESET, unix.SYS_LANDLOCK_RESTRICT_SELF},
		},
	},
}

// categories maps a category name to its assembled fragment. It is built
// once and never modified.
var categories = func() map[string][]bpf.RawInstruction {
	m := make(map[string][]bpf.RawInstruction, len(categoryTable))
	for _, c := range categoryTable {
		var frag []bpf.RawInstruction
		for _, s := range c.spans {
			frag = append(frag, allowRange(s.lo, s.hi)...)
		}
		m[c.name] = frag
	}
	return m
}()

// Categories returns the registered category names in sorted order.
func Categories() []string {
	names := make([]string, 0, len(categoryTable))
	for _, c := range categoryTable {
		names = append(names, c.name)
	}
	slices.Sort(names)
	return names
}

// Describe returns a one-line description of a category.
func Describe(name string) (string, error) {
	for _, c := range categoryTable {
		if c.name == name {
			return c.desc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Syscalls returns the syscall numbers a category allows, in ascending
// order.
func Syscalls(name string) ([]uint32, error) {
	for _, c := range categoryTable {
		if c.name != name {
			continue
		}
		var nrs []uint32
		for _, s := range c.spans {
			for nr := s.lo; nr <= s.hi; nr++ {
				nrs = append(nrs, nr)
			}
		}
		slices.Sort(nrs)
		return slices.Compact(nrs), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}
