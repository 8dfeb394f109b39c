//go:build linux && amd64

// Command jailkit runs a program under Landlock and seccomp restrictions.
//
//	jailkit run --rw /tmp --allow net -- curl https://example.com
//	jailkit run --policy policy.json -- make test
//	jailkit info
//	jailkit categories
//	jailkit bpf --allow io
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/urfave/cli"

	"github.com/zhangyunhao116/jailkit"
)

const usage = `unprivileged sandbox for a single command

jailkit confines a command with no_new_privs, a Landlock filesystem ruleset
and a seccomp-BPF syscall allow-list, then execs it. No root privileges or
namespaces are required.`

var version = "dev"

func main() {
	// The sandboxed child re-enters here; it never returns in that case.
	jailkit.MaybeSandboxInit()

	app := cli.NewApp()
	app.Name = "jailkit"
	app.Usage = usage
	app.Version = version
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		level := slog.LevelWarn
		if ctx.GlobalBool("debug") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	}
	app.Commands = []cli.Command{
		runCommand,
		infoCommand,
		categoriesCommand,
		bpfCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "jailkit: %v\n", err)
		os.Exit(exitCode(err))
	}
}

var policyFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "policy",
		Usage: "load the policy from a JSON `FILE` instead of the built-in default",
	},
	cli.StringSliceFlag{
		Name:  "ro",
		Usage: "grant read access beneath `PATH` (repeatable, globs allowed)",
	},
	cli.StringSliceFlag{
		Name:  "rw",
		Usage: "grant read and write access beneath `PATH`",
	},
	cli.StringSliceFlag{
		Name:  "rx",
		Usage: "grant read and execute access beneath `PATH`",
	},
	cli.StringSliceFlag{
		Name:  "allow",
		Usage: "allow the syscall `CATEGORY` (see 'jailkit categories')",
	},
	cli.IntSliceFlag{
		Name:  "syscall",
		Usage: "allow the syscall with number `NR`",
	},
	cli.BoolFlag{
		Name:  "kill-thread",
		Usage: "kill only the offending thread on a forbidden syscall",
	},
	cli.BoolFlag{
		Name:  "no-landlock",
		Usage: "disable the Landlock stage",
	},
	cli.BoolFlag{
		Name:  "no-seccomp",
		Usage: "disable the seccomp stage",
	},
	cli.BoolFlag{
		Name:  "new-session",
		Usage: "detach the command from the controlling terminal",
	},
	cli.BoolFlag{
		Name:  "strict-landlock",
		Usage: "fail instead of degrading on kernels with an older Landlock ABI",
	},
}

var runCommand = cli.Command{
	Name:           "run",
	Usage:          "run a command inside the sandbox",
	ArgsUsage:      "-- <command> [args...]",
	Flags:          policyFlags,
	SkipArgReorder: true,
	Action: func(ctx *cli.Context) error {
		argv := []string(ctx.Args())
		if len(argv) > 0 && argv[0] == "--" {
			argv = argv[1:]
		}
		if len(argv) == 0 {
			return jailkit.ErrNoCommand
		}

		p, err := policyFromFlags(ctx)
		if err != nil {
			return err
		}

		opts := []jailkit.Option{jailkit.WithStdio(os.Stdin, os.Stdout, os.Stderr)}
		if ctx.Bool("new-session") {
			opts = append(opts, jailkit.WithNewSession())
		}
		cmd, err := jailkit.Command(context.Background(), p, argv, opts...)
		if err != nil {
			return err
		}
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return cli.NewExitError("", exitCode(err))
			}
			return err
		}
		return nil
	},
}

// policyFromFlags builds the policy for run from the policy file or the
// default, adjusted by the command-line flags.
func policyFromFlags(ctx *cli.Context) (*jailkit.Policy, error) {
	var (
		p   *jailkit.Policy
		err error
	)
	if path := ctx.String("policy"); path != "" {
		p, err = jailkit.LoadPolicy(path)
		if err != nil {
			return nil, err
		}
	} else {
		p = jailkit.DefaultPolicy()
	}

	for _, g := range []struct{ flag, access string }{{"ro", "r"}, {"rw", "rw"}, {"rx", "rx"}} {
		for _, path := range ctx.StringSlice(g.flag) {
			p.Landlock.Rules = append(p.Landlock.Rules, jailkit.PathRule{Path: path, Access: g.access})
		}
	}
	if ctx.Bool("strict-landlock") {
		p.Landlock.BestEffort = false
	}
	if ctx.Bool("no-landlock") {
		p.Landlock.Enabled = false
	}

	p.Seccomp.Categories = append(p.Seccomp.Categories, ctx.StringSlice("allow")...)
	for _, nr := range ctx.IntSlice("syscall") {
		if nr < 0 {
			return nil, fmt.Errorf("%w: negative syscall number %d", jailkit.ErrConfigInvalid, nr)
		}
		p.Seccomp.Syscalls = append(p.Seccomp.Syscalls, uint32(nr))
	}
	if ctx.Bool("kill-thread") {
		p.Seccomp.KillThread = true
	}
	if ctx.Bool("no-seccomp") {
		p.Seccomp.Enabled = false
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// exitCode maps an error to the process exit status: the child's status
// when the sandboxed command ran, 1 otherwise.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed by a signal, typically SIGSYS from the seccomp filter.
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	slog.Debug("jailkit: failure", "code", jailkit.Code(err))
	return 1
}
