//go:build linux && amd64

package jailkit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// sessionWaitDelay bounds how long Wait keeps reading the command's pipes
// after its session was killed.
const sessionWaitDelay = 3 * time.Second

// killSessionFn is overridden in tests.
var killSessionFn = unix.Kill

// setupSession isolates a sandboxed command in a session of its own.
//
// Without a controlling terminal the program cannot push input into the
// caller's terminal with TIOCSTI, which neither Landlock nor the syscall
// categories restrict. The helper that applies the policy is the session
// leader and execs the target in place, so the session id is the target's
// pid and cancelling the context kills the target and every child it
// started. The command is also killed if the thread that started it exits,
// so a sandboxed program never outlives its supervisor.
func setupSession(cmd *exec.Cmd, logger *slog.Logger) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setpgid = false
	cmd.SysProcAttr.Pgid = 0
	cmd.SysProcAttr.Pdeathsig = syscall.SIGKILL

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return os.ErrProcessDone
		}
		sid := cmd.Process.Pid
		// kill(-1) and kill(0) would reach far beyond the sandbox.
		if sid <= 1 {
			return os.ErrProcessDone
		}
		logger.Debug("jailkit: killing sandboxed session", "sid", sid)
		if err := killSessionFn(-sid, unix.SIGKILL); err != nil {
			if errors.Is(err, unix.ESRCH) {
				return os.ErrProcessDone
			}
			return fmt.Errorf("jailkit: kill session %d: %w", sid, err)
		}
		return nil
	}
	cmd.WaitDelay = sessionWaitDelay
}
