//go:build linux && amd64

package main

import (
	"errors"
	"flag"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/urfave/cli"

	"github.com/zhangyunhao116/jailkit"
)

// runContext parses args against the run flags.
func runContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("run", flag.ContinueOnError)
	for _, f := range policyFlags {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestPolicyFromFlags_Default(t *testing.T) {
	p, err := policyFromFlags(runContext(t))
	if err != nil {
		t.Fatalf("policyFromFlags() = %v", err)
	}
	def := jailkit.DefaultPolicy()
	if len(p.Landlock.Rules) != len(def.Landlock.Rules) {
		t.Errorf("rules = %d, want the %d default rules", len(p.Landlock.Rules), len(def.Landlock.Rules))
	}
	if !p.Landlock.Enabled || !p.Seccomp.Enabled {
		t.Errorf("stages disabled: %+v", p)
	}
}

func TestPolicyFromFlags_Overrides(t *testing.T) {
	p, err := policyFromFlags(runContext(t,
		"--ro", "/srv/data", "--rw", "/var/tmp", "--rx", "/opt/tool",
		"--allow", "net", "--syscall", "99", "--kill-thread", "--strict-landlock"))
	if err != nil {
		t.Fatalf("policyFromFlags() = %v", err)
	}

	n := len(p.Landlock.Rules)
	got := p.Landlock.Rules[n-3:]
	want := []jailkit.PathRule{
		{Path: "/srv/data", Access: "r"},
		{Path: "/var/tmp", Access: "rw"},
		{Path: "/opt/tool", Access: "rx"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if p.Landlock.BestEffort {
		t.Error("--strict-landlock did not disable best effort")
	}
	cats := p.Seccomp.Categories
	if cats[len(cats)-1] != "net" {
		t.Errorf("categories = %v, want net appended", cats)
	}
	if len(p.Seccomp.Syscalls) != 1 || p.Seccomp.Syscalls[0] != 99 {
		t.Errorf("syscalls = %v, want [99]", p.Seccomp.Syscalls)
	}
	if !p.Seccomp.KillThread {
		t.Error("--kill-thread not applied")
	}
}

func TestPolicyFromFlags_Disable(t *testing.T) {
	p, err := policyFromFlags(runContext(t, "--no-landlock", "--no-seccomp"))
	if err != nil {
		t.Fatalf("policyFromFlags() = %v", err)
	}
	if p.Landlock.Enabled || p.Seccomp.Enabled {
		t.Errorf("stages still enabled: %+v", p)
	}
}

func TestPolicyFromFlags_PolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	data := `{"no_new_privs": true, "seccomp": {"enabled": true, "stricter": true}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := policyFromFlags(runContext(t, "--policy", path))
	if err != nil {
		t.Fatalf("policyFromFlags() = %v", err)
	}
	if !p.Seccomp.Stricter || p.Landlock.Enabled {
		t.Errorf("policy file not used: %+v", p)
	}

	// Stricter cannot be combined with extra categories.
	if _, err := policyFromFlags(runContext(t, "--policy", path, "--allow", "net")); !errors.Is(err, jailkit.ErrConfigInvalid) {
		t.Errorf("got %v, want ErrConfigInvalid", err)
	}
}

func TestPolicyFromFlags_Invalid(t *testing.T) {
	if _, err := policyFromFlags(runContext(t, "--allow", "bogus")); !errors.Is(err, jailkit.ErrConfigInvalid) {
		t.Errorf("unknown category: got %v, want ErrConfigInvalid", err)
	}
	if _, err := policyFromFlags(runContext(t, "--syscall", "-1")); !errors.Is(err, jailkit.ErrConfigInvalid) {
		t.Errorf("negative syscall: got %v, want ErrConfigInvalid", err)
	}
	if _, err := policyFromFlags(runContext(t, "--ro", "relative")); !errors.Is(err, jailkit.ErrConfigInvalid) {
		t.Errorf("relative path: got %v, want ErrConfigInvalid", err)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Errorf("plain error: got %d, want 1", got)
	}

	err := exec.Command("sh", "-c", "exit 7").Run()
	if got := exitCode(err); got != 7 {
		t.Errorf("exit 7: got %d, want 7", got)
	}

	err = exec.Command("sh", "-c", "kill -s SYS $$").Run()
	if got := exitCode(err); got != 128+31 {
		t.Errorf("SIGSYS: got %d, want %d", got, 128+31)
	}
}
