//go:build linux && amd64

package jailkit

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/kernel"
	"github.com/zhangyunhao116/jailkit/internal/pathutil"
	"github.com/zhangyunhao116/jailkit/landlock"
	"github.com/zhangyunhao116/jailkit/seccomp"
)

// Function variables for the sandbox stages, overridden in tests to avoid
// irreversible process changes.
var (
	hardenFn        = Harden
	setNNPFn        = SetNoNewPrivs
	applyLandlockFn = applyLandlock
	applySeccompFn  = applySeccomp
	resolveFn       = pathutil.ResolveWithBoundaryCheck
	hasSysAdminFn   = kernel.HasSysAdmin
)

// Apply confines the calling process according to p, in order:
// no_new_privs, Landlock, seccomp. The first failure aborts the remaining
// stages and is returned as a *StageError; restrictions from earlier stages
// stay in force, so the caller must not proceed with the sandboxed work.
//
// Unless AllThreads is set, the seccomp filter covers only the calling OS
// thread; callers should hold runtime.LockOSThread.
func Apply(p *Policy, opts ...Option) error {
	o := newApplyOptions(opts)
	logger := o.logger

	if p == nil {
		return fmt.Errorf("%w: nil policy", ErrConfigInvalid)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	switch {
	case p.Harden:
		if err := hardenFn(); err != nil {
			return stageFailed(logger, "no_new_privs", err)
		}
		logger.Debug("jailkit: process hardened")
	case p.NoNewPrivs:
		if err := setNNPFn(); err != nil {
			return stageFailed(logger, "no_new_privs", err)
		}
		logger.Debug("jailkit: no_new_privs set")
	default:
		if p.Landlock.Enabled || p.Seccomp.Enabled {
			if ok, err := hasSysAdminFn(); err == nil && !ok {
				logger.Warn("jailkit: no_new_privs is off and CAP_SYS_ADMIN is missing; the kernel will refuse the sandbox")
			}
		}
	}

	if p.Landlock.Enabled {
		rules, err := applyLandlockFn(p.Landlock, logger)
		if err != nil {
			return stageFailed(logger, "landlock", err)
		}
		logger.Debug("jailkit: landlock ruleset applied", "rules", rules)
	}

	if p.Seccomp.Enabled {
		n, err := applySeccompFn(p.Seccomp)
		if err != nil {
			return stageFailed(logger, "seccomp", err)
		}
		logger.Debug("jailkit: seccomp filter installed", "instructions", n, "all_threads", p.Seccomp.AllThreads)
	}

	return nil
}

func stageFailed(logger *slog.Logger, stage string, err error) error {
	logger.Error("jailkit: sandbox stage failed", "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}

// applyLandlock builds and enforces the ruleset described by lp and returns
// the number of rules added.
func applyLandlock(lp LandlockPolicy, logger *slog.Logger) (int, error) {
	newRuleset := landlock.Init
	if lp.BestEffort {
		newRuleset = landlock.InitBestEffort
	}
	rs, err := newRuleset()
	if err != nil {
		return 0, err
	}
	defer func() { _ = rs.Close() }()

	if lp.Defaults {
		if err := rs.AddDefaults(); err != nil {
			return 0, err
		}
	}

	rules, err := expandRules(lp.Rules)
	if err != nil {
		return 0, err
	}
	for _, r := range rules {
		access, err := landlock.ParseAccess(r.Access)
		if err != nil {
			return 0, err
		}
		if lp.ConfineSymlinks {
			if _, err := resolveFn(r.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return 0, err
			}
		}
		err = rs.AddPath(r.Path, access)
		if errors.Is(err, unix.ENOENT) {
			if lp.BestEffort {
				logger.Debug("jailkit: skipping missing landlock path", "path", r.Path)
				continue
			}
			if missing := pathutil.FindFirstNonExistent(r.Path); missing != "" {
				return 0, fmt.Errorf("%w (%s does not exist)", err, missing)
			}
		}
		if err != nil {
			return 0, err
		}
	}

	n := rs.Rules()
	if err := rs.Apply(); err != nil {
		return 0, err
	}
	return n, nil
}

// applySeccomp builds and installs the filter described by sp and returns
// its instruction count. The program memory is never released: the filter
// may not allow munmap.
func applySeccomp(sp SeccompPolicy) (int, error) {
	var (
		view seccomp.ProgramView
		err  error
	)
	if sp.Stricter {
		view, err = seccomp.NewStricterDefault()
	} else {
		view, err = buildFilter(sp)
	}
	if err != nil {
		return 0, err
	}

	if sp.AllThreads {
		err = view.ApplyAllThreads()
	} else {
		err = view.Apply()
	}
	if err != nil {
		return 0, err
	}
	return view.Len(), nil
}

func buildFilter(sp SeccompPolicy) (seccomp.ProgramView, error) {
	b := seccomp.New()
	if sp.NoDefaults {
		b = seccomp.NewNoDefaults()
	}
	for _, name := range sp.Categories {
		if err := b.Allow(name); err != nil {
			return seccomp.ProgramView{}, err
		}
	}
	for _, nr := range sp.Syscalls {
		if err := b.AllowSyscall(nr); err != nil {
			return seccomp.ProgramView{}, err
		}
	}

	action := seccomp.KillProcess
	if sp.KillThread {
		action = seccomp.KillThread
	}
	return b.BuildView(action)
}
