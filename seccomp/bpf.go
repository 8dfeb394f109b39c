//go:build linux && amd64

package seccomp

import (
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// Offsets into struct seccomp_data.
const (
	offNr   = 0
	offArch = 4
	offArgs = 16
)

// MaxInstructions is the largest instruction count a filter program can
// carry (sock_fprog.len is 16 bits).
const MaxInstructions = 1<<16 - 1

// argLow returns the offset of the low 32 bits of args[i].
func argLow(i int) uint32 {
	return offArgs + 8*uint32(i) //nolint:gosec // i is a syscall argument index in [0, 5]
}

// argHigh returns the offset of the high 32 bits of args[i].
func argHigh(i int) uint32 {
	return argLow(i) + 4
}

// mustAssemble assembles a fixed fragment. Fragments are package constants,
// so a failure here is a programming error.
func mustAssemble(insts ...bpf.Instruction) []bpf.RawInstruction {
	raw, err := bpf.Assemble(insts)
	if err != nil {
		panic("seccomp: assemble: " + err.Error())
	}
	return raw
}

func loadNr() bpf.Instruction {
	return bpf.LoadAbsolute{Off: offNr, Size: 4}
}

func retAllow() bpf.Instruction {
	return bpf.RetConstant{Val: unix.SECCOMP_RET_ALLOW}
}

// preamble kills the process unless the syscall was made with the x86_64
// calling convention, then loads the syscall number into A.
func preamble() []bpf.RawInstruction {
	return mustAssemble(
		bpf.LoadAbsolute{Off: offArch, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.AUDIT_ARCH_X86_64, SkipTrue: 1},
		bpf.RetConstant{Val: unix.SECCOMP_RET_KILL_PROCESS},
		loadNr(),
	)
}

// The fragments below expect the syscall number in A and leave it there, so
// they can be concatenated in any order.

// allowSyscall allows exactly nr.
func allowSyscall(nr uint32) []bpf.RawInstruction {
	return mustAssemble(
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: nr, SkipFalse: 1},
		retAllow(),
	)
}

// allowRange allows every syscall in [lo, hi].
func allowRange(lo, hi uint32) []bpf.RawInstruction {
	if lo == hi {
		return allowSyscall(lo)
	}
	return mustAssemble(
		bpf.JumpIf{Cond: bpf.JumpGreaterOrEqual, Val: lo, SkipFalse: 2},
		bpf.JumpIf{Cond: bpf.JumpGreaterThan, Val: hi, SkipTrue: 1},
		retAllow(),
	)
}

// allowIfArgZero allows nr only when its 64-bit argument arg is zero. A is
// reloaded with the syscall number on every path that falls through.
func allowIfArgZero(nr uint32, arg int) []bpf.RawInstruction {
	return mustAssemble(
		// [0] not nr: skip the whole check.
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: nr, SkipFalse: 6},
		// [1..4] both halves of the argument must be zero.
		bpf.LoadAbsolute{Off: argLow(arg), Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0, SkipFalse: 3},
		bpf.LoadAbsolute{Off: argHigh(arg), Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0, SkipFalse: 1},
		// [5]
		retAllow(),
		// [6] restore A for the fragments that follow.
		loadNr(),
	)
}

// ret ends a program with action.
func ret(action Action) []bpf.RawInstruction {
	return mustAssemble(bpf.RetConstant{Val: uint32(action)})
}
