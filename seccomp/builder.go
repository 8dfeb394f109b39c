//go:build linux && amd64

// Package seccomp assembles and installs seccomp-BPF allow-list filters.
//
// A Builder starts from a fixed preamble that kills the process for any
// non-x86_64 syscall, accumulates named syscall categories, and is finished
// with a terminal action for everything not allowed. The finished program is
// copied into a read-only mapping before it can be installed.
//
//	b := seccomp.New() // preamble + "basic"
//	if err := b.Allow("io"); err != nil {
//	    return err
//	}
//	prog, err := b.Build(seccomp.KillProcess)
//	if err != nil {
//	    return err
//	}
//	defer prog.Close()
//	runtime.LockOSThread()
//	return prog.Apply()
package seccomp

import (
	"fmt"
	"slices"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// Action is the verdict returned for syscalls a program does not allow.
type Action uint32

// Terminal actions.
const (
	KillProcess Action = unix.SECCOMP_RET_KILL_PROCESS
	KillThread  Action = unix.SECCOMP_RET_KILL_THREAD
	Trap        Action = unix.SECCOMP_RET_TRAP
	Log         Action = unix.SECCOMP_RET_LOG
)

// Errno returns an action that fails the syscall with e instead of killing.
func Errno(e unix.Errno) Action {
	return Action(unix.SECCOMP_RET_ERRNO | uint32(e)&unix.SECCOMP_RET_DATA)
}

func (a Action) String() string {
	switch a {
	case KillProcess:
		return "kill_process"
	case KillThread:
		return "kill_thread"
	case Trap:
		return "trap"
	case Log:
		return "log"
	}
	if a&^unix.SECCOMP_RET_DATA == unix.SECCOMP_RET_ERRNO {
		return fmt.Sprintf("errno(%d)", uint32(a&unix.SECCOMP_RET_DATA))
	}
	return fmt.Sprintf("action(%#x)", uint32(a))
}

// Builder accumulates a filter program. The zero value starts like
// NewNoDefaults: the preamble is added before the first instruction. It is
// not safe for concurrent use.
type Builder struct {
	insts    []bpf.RawInstruction
	finished bool
	view     ProgramView
}

var preambleProg = preamble()

// New returns a builder holding the preamble and the "basic" category, the
// calls any process needs to keep running.
func New() *Builder {
	b := NewNoDefaults()
	b.insts = append(b.insts, categories["basic"]...)
	return b
}

// NewNoDefaults returns a builder holding only the preamble.
func NewNoDefaults() *Builder {
	return &Builder{insts: slices.Clone(preambleProg)}
}

// seed adds the preamble to a builder that has none yet. Every program must
// check the architecture and load the syscall number before any fragment.
func (b *Builder) seed() {
	if b.insts == nil {
		b.insts = slices.Clone(preambleProg)
	}
}

// Allow appends the named category. An unknown name leaves the builder
// unchanged.
func (b *Builder) Allow(name string) error {
	if b.finished {
		return ErrFinished
	}
	frag, ok := categories[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	b.seed()
	b.insts = append(b.insts, frag...)
	return nil
}

// AllowSyscall appends an allowance for a single syscall number.
func (b *Builder) AllowSyscall(nr uint32) error {
	if b.finished {
		return ErrFinished
	}
	b.seed()
	b.insts = append(b.insts, allowSyscall(nr)...)
	return nil
}

// AllowRange appends an allowance for the syscall numbers in [lo, hi].
func (b *Builder) AllowRange(lo, hi uint32) error {
	if b.finished {
		return ErrFinished
	}
	if lo > hi {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, lo, hi)
	}
	b.seed()
	b.insts = append(b.insts, allowRange(lo, hi)...)
	return nil
}

// Len returns the current instruction count.
func (b *Builder) Len() int {
	return len(b.insts)
}

// Finished reports whether Finish has succeeded.
func (b *Builder) Finished() bool {
	return b.finished
}

// Instructions returns a copy of the instructions accumulated so far.
func (b *Builder) Instructions() []bpf.RawInstruction {
	return slices.Clone(b.insts)
}

// Finish appends the terminal action and seals the builder against further
// changes. Calling Finish again is a no-op and ignores action. If the
// program would exceed MaxInstructions the builder is left unfinished.
func (b *Builder) Finish(action Action) error {
	if b.finished {
		return nil
	}
	b.seed()
	if len(b.insts)+1 > MaxInstructions {
		return fmt.Errorf("%w: %d instructions", ErrTooLarge, len(b.insts)+1)
	}
	insts := make([]bpf.RawInstruction, 0, len(b.insts)+1)
	insts = append(insts, b.insts...)
	b.insts = append(insts, ret(action)...)
	b.finished = true
	return nil
}

// Build finishes the builder and returns a sealed program that owns its
// memory.
func (b *Builder) Build(action Action) (*Program, error) {
	if err := b.Finish(action); err != nil {
		return nil, err
	}
	return newProgram(b.insts)
}

// BuildView finishes the builder and returns a view of a sealed program
// whose memory is never released. Use it for programs installed once for
// the life of the process. Later calls return the same view.
func (b *Builder) BuildView(action Action) (ProgramView, error) {
	if b.view.Valid() {
		return b.view, nil
	}
	if err := b.Finish(action); err != nil {
		return ProgramView{}, err
	}
	region, view, err := materialize(b.insts)
	if err != nil {
		return ProgramView{}, err
	}
	region.Disown()
	b.view = view
	return view, nil
}
