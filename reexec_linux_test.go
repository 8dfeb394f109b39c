//go:build linux && amd64

package jailkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
)

// saveSandboxFns saves the re-exec function variables and restores them
// when the test finishes.
func saveSandboxFns(t *testing.T) {
	t.Helper()
	origApply := applyFn
	origLookPath := lookPathFn
	origSelf := selfExeFn
	origExec := syscallExecFn
	origExit := osExitFn
	origArgs := os.Args
	t.Cleanup(func() {
		applyFn = origApply
		lookPathFn = origLookPath
		selfExeFn = origSelf
		syscallExecFn = origExec
		osExitFn = origExit
		os.Args = origArgs
	})
}

// execCall records the arguments passed to the stubbed exec.
type execCall struct {
	path string
	argv []string
	env  []string
}

// stubSandboxFns replaces Apply, PATH lookup and exec with recorders.
func stubSandboxFns(t *testing.T) (*[]*Policy, *execCall) {
	t.Helper()
	saveSandboxFns(t)
	var applied []*Policy
	call := &execCall{}
	applyFn = func(p *Policy, _ ...Option) error {
		applied = append(applied, p)
		return nil
	}
	lookPathFn = func(name string) (string, error) {
		return "/resolved/" + name, nil
	}
	syscallExecFn = func(path string, argv, env []string) error {
		call.path, call.argv, call.env = path, argv, env
		return nil
	}
	return &applied, call
}

// policyPipe returns the decimal fd of a pipe holding data.
func policyPipe(t *testing.T, data []byte) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()
	return strconv.Itoa(int(r.Fd()))
}

func TestMaybeSandboxInit_NoEnvVar(t *testing.T) {
	t.Setenv(policyEnvKey, "")
	if MaybeSandboxInit() {
		t.Error("MaybeSandboxInit() returned true without env var set")
	}
}

func TestMaybeSandboxInit_WithEnvVar(t *testing.T) {
	applied, call := stubSandboxFns(t)

	t.Setenv(policyEnvKey, policyPipe(t, []byte(`{"no_new_privs": true}`)))
	t.Setenv("_JAILKIT_STALE", "1")
	os.Args = []string{"jailkit", "true", "-v"}

	exitCode := -1
	osExitFn = func(code int) { exitCode = code }

	if !MaybeSandboxInit() {
		t.Fatal("MaybeSandboxInit() returned false, want true")
	}
	if exitCode != 0 {
		t.Errorf("exit code = %d, want 0", exitCode)
	}
	if len(*applied) != 1 || !(*applied)[0].NoNewPrivs {
		t.Fatalf("applied policies = %+v", *applied)
	}
	if call.path != "/resolved/true" {
		t.Errorf("exec path = %q, want /resolved/true", call.path)
	}
	if strings.Join(call.argv, " ") != "true -v" {
		t.Errorf("exec argv = %q, want [true -v]", call.argv)
	}
	for _, e := range call.env {
		if strings.HasPrefix(e, "_JAILKIT_") {
			t.Errorf("internal variable leaked into the command environment: %q", e)
		}
	}
}

func TestSandboxInit_Failures(t *testing.T) {
	tests := []struct {
		name  string
		fd    func(t *testing.T) string
		args  []string
		setup func()
	}{
		{
			name: "non-numeric fd",
			fd:   func(*testing.T) string { return "not-a-number" },
			args: []string{"jailkit", "true"},
		},
		{
			name: "negative fd",
			fd:   func(*testing.T) string { return "-1" },
			args: []string{"jailkit", "true"},
		},
		{
			name: "closed fd",
			fd:   func(*testing.T) string { return "999" },
			args: []string{"jailkit", "true"},
		},
		{
			name: "invalid json",
			fd:   func(t *testing.T) string { return policyPipe(t, []byte("not json")) },
			args: []string{"jailkit", "true"},
		},
		{
			name: "invalid policy",
			fd: func(t *testing.T) string {
				return policyPipe(t, []byte(`{"landlock": {"rules": [{"path": "rel", "access": "r"}]}}`))
			},
			args: []string{"jailkit", "true"},
		},
		{
			name: "no command",
			fd:   func(t *testing.T) string { return policyPipe(t, []byte(`{}`)) },
			args: []string{"jailkit"},
		},
		{
			name: "lookup failure",
			fd:   func(t *testing.T) string { return policyPipe(t, []byte(`{}`)) },
			args: []string{"jailkit", "missing"},
			setup: func() {
				lookPathFn = func(string) (string, error) { return "", exec.ErrNotFound }
			},
		},
		{
			name: "apply failure",
			fd:   func(t *testing.T) string { return policyPipe(t, []byte(`{}`)) },
			args: []string{"jailkit", "true"},
			setup: func() {
				applyFn = func(*Policy, ...Option) error { return &StageError{Stage: "landlock", Err: errors.New("boom")} }
			},
		},
		{
			name: "exec failure",
			fd:   func(t *testing.T) string { return policyPipe(t, []byte(`{}`)) },
			args: []string{"jailkit", "true"},
			setup: func() {
				syscallExecFn = func(string, []string, []string) error { return os.ErrPermission }
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, call := stubSandboxFns(t)
			if tt.setup != nil {
				tt.setup()
			}
			os.Args = tt.args

			if code := sandboxInit(tt.fd(t)); code != 1 {
				t.Errorf("sandboxInit() = %d, want 1", code)
			}
			if tt.name != "exec failure" && call.path != "" {
				t.Errorf("exec reached with %q after a failure", call.path)
			}
		})
	}
}

func TestSandboxInit_ApplyBeforeExec(t *testing.T) {
	saveSandboxFns(t)
	var order []string
	lookPathFn = func(name string) (string, error) {
		order = append(order, "lookup")
		return name, nil
	}
	applyFn = func(*Policy, ...Option) error {
		order = append(order, "apply")
		return nil
	}
	syscallExecFn = func(string, []string, []string) error {
		order = append(order, "exec")
		return nil
	}
	os.Args = []string{"jailkit", "/bin/true"}

	if code := sandboxInit(policyPipe(t, []byte(`{}`))); code != 0 {
		t.Fatalf("sandboxInit() = %d, want 0", code)
	}
	if got := strings.Join(order, ","); got != "lookup,apply,exec" {
		t.Errorf("order = %q, want lookup,apply,exec", got)
	}
}

func TestCommand(t *testing.T) {
	saveSandboxFns(t)
	selfExeFn = func() (string, error) { return "/usr/local/bin/jailkit", nil }
	t.Setenv("_JAILKIT_STALE", "1")

	var stdout bytes.Buffer
	p := &Policy{NoNewPrivs: true, Seccomp: SeccompPolicy{Enabled: true, Categories: []string{"io"}}}
	cmd, err := Command(context.Background(), p, []string{"echo", "hi"},
		WithEnv("FOO=bar", "_JAILKIT_POLICY_FD=7"), WithStdio(nil, &stdout, nil))
	if err != nil {
		t.Fatalf("Command() = %v", err)
	}

	if cmd.Path != "/usr/local/bin/jailkit" {
		t.Errorf("Path = %q", cmd.Path)
	}
	if got := strings.Join(cmd.Args, " "); got != "/usr/local/bin/jailkit echo hi" {
		t.Errorf("Args = %q", got)
	}
	if cmd.Stdout != &stdout {
		t.Error("stdout not wired")
	}
	if cmd.SysProcAttr != nil && cmd.SysProcAttr.Setsid {
		t.Error("new session requested without WithNewSession")
	}

	var fdVars []string
	foo := false
	for _, e := range cmd.Env {
		switch {
		case strings.HasPrefix(e, "_JAILKIT_"):
			fdVars = append(fdVars, e)
		case e == "FOO=bar":
			foo = true
		}
	}
	if len(fdVars) != 1 || fdVars[0] != policyEnvKey+"=3" {
		t.Errorf("internal variables = %v, want only %s=3", fdVars, policyEnvKey)
	}
	if !foo {
		t.Error("WithEnv variable missing")
	}

	if len(cmd.ExtraFiles) != 1 {
		t.Fatalf("ExtraFiles = %d, want 1", len(cmd.ExtraFiles))
	}
	defer cmd.ExtraFiles[0].Close()
	data, err := io.ReadAll(cmd.ExtraFiles[0])
	if err != nil {
		t.Fatal(err)
	}
	var got Policy
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("pipe does not hold a policy: %v", err)
	}
	if !got.NoNewPrivs || len(got.Seccomp.Categories) != 1 {
		t.Errorf("decoded policy = %+v", got)
	}
}

func TestCommand_Errors(t *testing.T) {
	saveSandboxFns(t)
	ctx := context.Background()

	if _, err := Command(ctx, &Policy{}, nil); !errors.Is(err, ErrNoCommand) {
		t.Errorf("empty argv: got %v, want ErrNoCommand", err)
	}
	if _, err := Command(ctx, &Policy{}, []string{""}); !errors.Is(err, ErrNoCommand) {
		t.Errorf("empty name: got %v, want ErrNoCommand", err)
	}
	if _, err := Command(ctx, nil, []string{"true"}); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("nil policy: got %v, want ErrConfigInvalid", err)
	}
	bad := &Policy{Landlock: LandlockPolicy{Rules: []PathRule{{Path: "rel", Access: "r"}}}}
	if _, err := Command(ctx, bad, []string{"true"}); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("invalid policy: got %v, want ErrConfigInvalid", err)
	}

	huge := &Policy{}
	for i := 0; i < 4096; i++ {
		huge.Landlock.Rules = append(huge.Landlock.Rules, PathRule{Path: "/" + strings.Repeat("x", 16), Access: "r"})
	}
	if _, err := Command(ctx, huge, []string{"true"}); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("oversized policy: got %v, want ErrConfigInvalid", err)
	}

	selfExeFn = func() (string, error) { return "", os.ErrNotExist }
	if _, err := Command(ctx, &Policy{}, []string{"true"}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("no executable: got %v, want os.ErrNotExist", err)
	}
}

// TestCommand_Sandboxed runs a real command through the re-exec path. The
// test binary acts as the sandbox helper via TestMain.
func TestCommand_Sandboxed(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not found in PATH")
	}
	p := &Policy{
		NoNewPrivs: true,
		Seccomp: SeccompPolicy{
			Enabled:    true,
			Categories: []string{"io", "fs", "time", "poll", "process", "exec"},
			AllThreads: true,
		},
	}
	var stderr bytes.Buffer
	cmd, err := Command(context.Background(), p, []string{"true"}, WithStdio(nil, nil, &stderr), WithNewSession())
	if err != nil {
		t.Fatalf("Command() = %v", err)
	}
	if !cmd.SysProcAttr.Setsid {
		t.Error("WithNewSession did not request a new session")
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("sandboxed true failed: %v\nstderr: %s", err, stderr.String())
	}
}
