//go:build linux && amd64

package jailkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"syscall"

	"github.com/zhangyunhao116/jailkit/internal/envutil"
)

// policyEnvKey is the environment variable that signals the process is in
// sandbox-init mode. Its value is the file descriptor number of the pipe
// carrying the JSON policy.
const policyEnvKey = envutil.PolicyFDKey

// policyFD is the descriptor number the policy pipe gets in the child: the
// first entry of ExtraFiles follows stdin, stdout and stderr.
const policyFD = 3

// maxPolicySize keeps the encoded policy within the default pipe capacity so
// Command can write it before the child starts.
const maxPolicySize = 60 << 10

// Function variables for dependency injection in tests.
var (
	applyFn       = Apply
	lookPathFn    = exec.LookPath
	selfExeFn     = os.Executable
	syscallExecFn = syscall.Exec
	osExitFn      = os.Exit
)

// Command returns a command that runs argv confined by p. The command
// re-executes the current binary, which must call MaybeSandboxInit at the top
// of main; the child applies p to itself and then execs argv[0], resolved
// through PATH.
//
// The policy travels over a pipe passed as the first extra file. Callers may
// append further ExtraFiles; they keep their descriptor numbers shifted by
// one.
func Command(ctx context.Context, p *Policy, argv []string, opts ...Option) (*exec.Cmd, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrNoCommand
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil policy", ErrConfigInvalid)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o := newApplyOptions(opts)

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("jailkit: encode policy: %w", err)
	}
	if len(data) > maxPolicySize {
		return nil, fmt.Errorf("%w: encoded policy is %d bytes, limit %d", ErrConfigInvalid, len(data), maxPolicySize)
	}

	self, err := selfExeFn()
	if err != nil {
		return nil, fmt.Errorf("jailkit: locate executable: %w", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("jailkit: policy pipe: %w", err)
	}
	_, err = w.Write(data)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("jailkit: write policy: %w", err)
	}

	cmd := exec.CommandContext(ctx, self, argv...)
	cmd.ExtraFiles = []*os.File{r}

	cmd.Env = envutil.Child(os.Environ(), o.env, policyFD)

	cmd.Stdin = o.stdin
	cmd.Stdout = o.stdout
	cmd.Stderr = o.stderr
	if o.newSession {
		setupSession(cmd, o.logger)
	}

	o.logger.Debug("jailkit: sandboxed command prepared", "path", self, "argv", argv, "policy_bytes", len(data))
	return cmd, nil
}

// MaybeSandboxInit checks if the current process was launched by Command. If
// so, it applies the policy and execs the real command; it only returns to
// exit the process on failure. If not in sandbox-init mode, it returns false
// and the caller continues normally.
func MaybeSandboxInit() bool {
	fdStr := os.Getenv(policyEnvKey)
	if fdStr == "" {
		return false
	}

	code := sandboxInit(fdStr)
	osExitFn(code)
	return true
}

// sandboxInit reads the policy from the given descriptor, confines the
// process and execs os.Args[1:]. Any failure is fatal: the command never runs
// with a partial sandbox.
func sandboxInit(fdStr string) int {
	// landlock_restrict_self and per-thread seccomp act on the calling thread.
	// This process execs or exits, so the lock is never released.
	runtime.LockOSThread()

	fd, err := strconv.Atoi(fdStr)
	if err != nil || fd < 0 {
		fmt.Fprintf(os.Stderr, "jailkit: invalid policy fd %q\n", fdStr)
		return 1
	}
	f := os.NewFile(uintptr(fd), "policy-pipe")
	if f == nil {
		fmt.Fprintf(os.Stderr, "jailkit: cannot open policy fd %d\n", fd)
		return 1
	}
	data, err := io.ReadAll(io.LimitReader(f, maxPolicySize+1))
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "jailkit: read policy: %v\n", err)
		return 1
	}
	p, err := ParsePolicy(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jailkit: %v\n", err)
		return 1
	}

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "jailkit: no command to exec\n")
		return 1
	}
	// Resolve before the sandbox hides PATH entries.
	path, err := lookPathFn(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "jailkit: %v\n", err)
		return 1
	}

	if err := applyFn(p, WithLogger(slog.New(slog.DiscardHandler))); err != nil {
		fmt.Fprintf(os.Stderr, "jailkit: %v\n", err)
		return 1
	}

	if err := syscallExecFn(path, args, envutil.Strip(os.Environ())); err != nil {
		fmt.Fprintf(os.Stderr, "jailkit: exec %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
