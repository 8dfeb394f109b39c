//go:build linux && amd64

package seccomp

import (
	"fmt"
	"unsafe"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/owned"
	"github.com/zhangyunhao116/jailkit/internal/rawsys"
)

// Function variables for kernel calls, overridden in tests to avoid
// irreversible process changes.
var (
	seccompFn = rawsys.Seccomp
	mapFn     = owned.Map
)

// ProgramView is a non-owning reference to a sealed filter program. Copies
// share the same memory.
type ProgramView struct {
	filter *unix.SockFilter
	n      uint16
}

// Len returns the number of instructions.
func (v ProgramView) Len() int {
	return int(v.n)
}

// Valid reports whether the view refers to a program.
func (v ProgramView) Valid() bool {
	return v.filter != nil && v.n > 0
}

// Instructions returns a copy of the program.
func (v ProgramView) Instructions() []bpf.RawInstruction {
	if !v.Valid() {
		return nil
	}
	src := unsafe.Slice(v.filter, v.n)
	out := make([]bpf.RawInstruction, len(src))
	for i, f := range src {
		out[i] = bpf.RawInstruction{Op: f.Code, Jt: f.Jt, Jf: f.Jf, K: f.K}
	}
	return out
}

// Apply installs the program on the calling OS thread. Callers that need the
// filter to cover a specific goroutine must hold runtime.LockOSThread.
// no_new_privs must be set unless the caller has CAP_SYS_ADMIN.
func (v ProgramView) Apply() error {
	return v.install(0)
}

// ApplyAllThreads installs the program on every thread of the process.
func (v ProgramView) ApplyAllThreads() error {
	return v.install(unix.SECCOMP_FILTER_FLAG_TSYNC)
}

func (v ProgramView) install(flags uint) error {
	if !v.Valid() {
		return ErrClosed
	}
	prog := unix.SockFprog{Len: v.n, Filter: v.filter}
	r := seccompFn(unix.SECCOMP_SET_MODE_FILTER, flags, unsafe.Pointer(&prog))
	if rawsys.IsError(r) {
		return fmt.Errorf("seccomp(SECCOMP_SET_MODE_FILTER): %w", rawsys.Err(r))
	}
	if r > 0 {
		// With TSYNC, a positive result is the thread that could not sync.
		return fmt.Errorf("%w: thread %d", ErrSync, r)
	}
	return nil
}

// Program is a sealed filter program that owns its memory.
type Program struct {
	region owned.Region
	view   ProgramView
}

// View returns a non-owning view. It is invalid after Close.
func (p *Program) View() ProgramView {
	return p.view
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return p.view.Len()
}

// Instructions returns a copy of the program.
func (p *Program) Instructions() []bpf.RawInstruction {
	return p.view.Instructions()
}

// Apply installs the program on the calling OS thread.
func (p *Program) Apply() error {
	return p.view.Apply()
}

// ApplyAllThreads installs the program on every thread of the process.
func (p *Program) ApplyAllThreads() error {
	return p.view.ApplyAllThreads()
}

// Close unmaps the program. Installed filters are kept by the kernel and are
// not affected.
func (p *Program) Close() error {
	p.view = ProgramView{}
	return p.region.Close()
}

// materialize copies raw into a new mapping and revokes write access to it.
func materialize(raw []bpf.RawInstruction) (owned.Region, ProgramView, error) {
	if len(raw) == 0 || len(raw) > MaxInstructions {
		return owned.Region{}, ProgramView{}, fmt.Errorf("%w: %d instructions", ErrTooLarge, len(raw))
	}

	region, err := mapFn(len(raw) * int(unsafe.Sizeof(unix.SockFilter{})))
	if err != nil {
		return owned.Region{}, ProgramView{}, fmt.Errorf("map program: %w", err)
	}
	b, err := region.Bytes()
	if err != nil {
		_ = region.Close()
		return owned.Region{}, ProgramView{}, err
	}

	filters := unsafe.Slice((*unix.SockFilter)(unsafe.Pointer(&b[0])), len(raw))
	for i, ins := range raw {
		filters[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}

	if err := region.Seal(); err != nil {
		_ = region.Close()
		return owned.Region{}, ProgramView{}, fmt.Errorf("seal program: %w", err)
	}
	return region, ProgramView{filter: &filters[0], n: uint16(len(raw))}, nil //nolint:gosec // bounded by MaxInstructions
}

// newProgram materializes raw into an owning Program.
func newProgram(raw []bpf.RawInstruction) (*Program, error) {
	region, view, err := materialize(raw)
	if err != nil {
		return nil, err
	}
	return &Program{region: region, view: view}, nil
}
