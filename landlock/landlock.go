//go:build linux && amd64

// Package landlock builds and enforces Landlock filesystem rulesets.
//
// A Ruleset is created with Init, collects path-beneath rules with AddPath or
// AddRule, and is enforced once with Apply. Enforcement is irreversible for
// the life of the process: later rulesets can only narrow access further.
//
//	rs, err := landlock.Init()
//	if err != nil {
//	    return err
//	}
//	defer rs.Close()
//	if err := rs.AddPath("/usr", landlock.ReadExecute); err != nil {
//	    return err
//	}
//	return rs.Apply()
package landlock

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/owned"
	"github.com/zhangyunhao116/jailkit/internal/rawsys"
)

// Function variables for Landlock syscalls, overridden in tests.
var (
	createRulesetFn = rawsys.LandlockCreateRuleset
	addRuleFn       = rawsys.LandlockAddRule
	restrictSelfFn  = rawsys.LandlockRestrictSelfAllThreads
	openPathFn      = owned.OpenAtRestart
)

// handledAccess is the fixed set of rights every Ruleset handles. Access not
// granted by a rule is denied for these rights once the ruleset is applied.
const handledAccess = Execute | Read | Write

// state is the lifecycle position of a Ruleset.
type state int

const (
	stateOpen state = iota
	stateApplied
	stateClosed
)

// Rule grants Access beneath Path.
type Rule struct {
	Path   string
	Access Access
}

// Ruleset is a kernel Landlock ruleset under construction. It owns the
// ruleset descriptor until Apply or Close releases it.
type Ruleset struct {
	fd         owned.FD
	handled    Access
	bestEffort bool
	rules      int
	state      state
}

// Init creates a ruleset handling execute, write_file, read_file and
// truncate. It fails with the kernel's errno when ruleset creation is
// refused, e.g. on a kernel without Landlock or with ABI < 3.
func Init() (*Ruleset, error) {
	return create(handledAccess, false)
}

// InitBestEffort creates a ruleset handling as much of the fixed set as the
// running kernel supports. On ABI < 3 truncate is not handled, and rules are
// masked to the handled rights instead of being rejected.
func InitBestEffort() (*Ruleset, error) {
	abi, err := ABI()
	if err != nil {
		return nil, err
	}
	handled := handledAccess
	if abi < 3 {
		handled &^= truncate
	}
	return create(handled, true)
}

func create(handled Access, bestEffort bool) (*Ruleset, error) {
	attr := unix.LandlockRulesetAttr{Access_fs: uint64(handled)}
	fd := createRulesetFn(&attr, unsafe.Sizeof(attr), 0)
	if rawsys.IsError(fd) {
		return nil, fmt.Errorf("landlock_create_ruleset: %w", rawsys.Err(fd))
	}
	return &Ruleset{
		fd:         owned.NewFD(fd),
		handled:    handled,
		bestEffort: bestEffort,
	}, nil
}

// Handled returns the rights this ruleset restricts.
func (r *Ruleset) Handled() Access {
	return r.handled
}

// Rules returns the number of rules added so far.
func (r *Ruleset) Rules() int {
	return r.rules
}

// Applied reports whether the ruleset has been enforced.
func (r *Ruleset) Applied() bool {
	return r.state == stateApplied
}

func (r *Ruleset) check() error {
	switch r.state {
	case stateApplied:
		return ErrApplied
	case stateClosed:
		return ErrClosed
	}
	return nil
}

// AddRule grants access beneath the file or directory referred to by fd.
// The descriptor stays owned by the caller.
func (r *Ruleset) AddRule(fd int, access Access) error {
	if err := r.check(); err != nil {
		return err
	}
	if r.bestEffort {
		if access&r.handled == 0 {
			return fmt.Errorf("%w: no handled right in %s", ErrInvalidAccess, access)
		}
		access &= r.handled
	}

	attr := unix.LandlockPathBeneathAttr{
		Allowed_access: uint64(access),
		Parent_fd:      int32(fd), //nolint:gosec // fd is a small file descriptor, no overflow risk
	}
	ret := addRuleFn(r.fd.Int(), unix.LANDLOCK_RULE_PATH_BENEATH, unsafe.Pointer(&attr), 0)
	if rawsys.IsError(ret) {
		return fmt.Errorf("landlock_add_rule: %w", rawsys.Err(ret))
	}
	r.rules++
	return nil
}

// AddPath opens path with O_PATH and grants access beneath it. Symlinks in
// path are followed so that the rule applies to the real hierarchy.
func (r *Ruleset) AddPath(path string, access Access) error {
	if err := r.check(); err != nil {
		return err
	}
	fd, err := openPathFn(unix.AT_FDCWD, path, unix.O_PATH, 0)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = fd.Close() }()

	if err := r.AddRule(fd.Int(), access); err != nil {
		return fmt.Errorf("rule for %q: %w", path, err)
	}
	return nil
}

// AddRules adds every rule in order and stops at the first failure.
func (r *Ruleset) AddRules(rules ...Rule) error {
	for _, rule := range rules {
		if err := r.AddPath(rule.Path, rule.Access); err != nil {
			return err
		}
	}
	return nil
}

// AddDefaults adds every entry of Defaults. Entries whose path does not exist
// on this system are skipped; any other failure is returned.
func (r *Ruleset) AddDefaults() error {
	for _, rule := range defaultRules {
		err := r.AddPath(rule.Path, rule.Access)
		if errors.Is(err, unix.ENOENT) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Apply enforces the ruleset on every thread of the calling process and
// releases the ruleset descriptor. It fails with EPERM when the process has
// neither no_new_privs set nor CAP_SYS_ADMIN. A failed Apply leaves the
// ruleset open.
func (r *Ruleset) Apply() error {
	if err := r.check(); err != nil {
		return err
	}
	if ret := restrictSelfFn(r.fd.Int(), 0); rawsys.IsError(ret) {
		return fmt.Errorf("landlock_restrict_self: %w", rawsys.Err(ret))
	}
	r.state = stateApplied
	_ = r.fd.Close()
	return nil
}

// Close discards a ruleset that has not been applied. It is safe to call
// after Apply and more than once.
func (r *Ruleset) Close() error {
	if r.state == stateOpen {
		r.state = stateClosed
	}
	return r.fd.Close()
}
