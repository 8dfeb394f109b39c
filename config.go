package jailkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhangyunhao116/jailkit/internal/pathutil"
)

// PathRule grants access beneath a path. Path may be a glob pattern
// (*, ** and ?), in which case every existing match receives the rule.
type PathRule struct {
	// Path is an absolute path or glob pattern.
	Path string `json:"path"`

	// Access is an access specification such as "r", "rw", "rx" or
	// "read,execute".
	Access string `json:"access"`
}

// LandlockPolicy configures the Landlock stage of Apply.
type LandlockPolicy struct {
	// Enabled turns the stage on.
	Enabled bool `json:"enabled"`

	// BestEffort handles only the rights the running kernel supports instead
	// of failing on older Landlock ABIs.
	BestEffort bool `json:"best_effort,omitempty"`

	// Defaults adds the paths most programs touch implicitly (/dev/null,
	// /dev/urandom, /proc/self, /bin, ...).
	Defaults bool `json:"defaults,omitempty"`

	// ConfineSymlinks rejects a rule whose path is a symlink resolving
	// outside the directory that contains it, such as /tmp/link -> /.
	ConfineSymlinks bool `json:"confine_symlinks,omitempty"`

	// Rules lists the granted paths.
	Rules []PathRule `json:"rules,omitempty"`
}

// SeccompPolicy configures the seccomp stage of Apply.
type SeccompPolicy struct {
	// Enabled turns the stage on.
	Enabled bool `json:"enabled"`

	// Stricter installs the fixed stricter-than-strict-mode baseline and
	// ignores every other field except AllThreads. The process can do little
	// more than I/O on open descriptors and exit afterwards.
	Stricter bool `json:"stricter,omitempty"`

	// NoDefaults omits the "basic" category.
	NoDefaults bool `json:"no_defaults,omitempty"`

	// Categories lists the allowed syscall categories.
	Categories []string `json:"categories,omitempty"`

	// Syscalls lists additional allowed syscall numbers.
	Syscalls []uint32 `json:"syscalls,omitempty"`

	// KillThread kills only the offending thread instead of the process.
	KillThread bool `json:"kill_thread,omitempty"`

	// AllThreads installs the filter on every thread instead of only the
	// calling one.
	AllThreads bool `json:"all_threads,omitempty"`
}

// Policy is the complete sandbox configuration applied by Apply.
type Policy struct {
	// NoNewPrivs sets no_new_privs before any other stage. It is required
	// for Landlock and seccomp unless the process has CAP_SYS_ADMIN.
	NoNewPrivs bool `json:"no_new_privs"`

	// Harden additionally marks the process non-dumpable and disables core
	// files. It implies NoNewPrivs.
	Harden bool `json:"harden,omitempty"`

	// Landlock defines filesystem restrictions.
	Landlock LandlockPolicy `json:"landlock"`

	// Seccomp defines syscall restrictions.
	Seccomp SeccompPolicy `json:"seccomp"`
}

// DefaultPolicy returns a Policy suitable for running an ordinary
// command-line program: system directories are readable and executable,
// the working directory is writable, and syscalls are limited to the
// categories such a program needs.
func DefaultPolicy() *Policy {
	rules := []PathRule{
		{Path: "/usr", Access: "rx"},
		{Path: "/lib", Access: "rx"},
		{Path: "/lib64", Access: "rx"},
		{Path: "/etc", Access: "r"},
		{Path: "/tmp", Access: "rw"},
	}
	if wd, err := os.Getwd(); err == nil {
		rules = append(rules, PathRule{Path: wd, Access: "rw"})
	}

	return &Policy{
		NoNewPrivs: true,
		Landlock: LandlockPolicy{
			Enabled:    true,
			BestEffort: true,
			Defaults:   true,
			Rules:      rules,
		},
		Seccomp: SeccompPolicy{
			Enabled:    true,
			Categories: []string{"io", "fs", "fswrite", "time", "poll", "process", "exec"},
			AllThreads: true,
		},
	}
}

// LoadPolicy reads a JSON policy from path and validates it.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jailkit: read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a JSON policy and validates it. Unknown fields are
// rejected.
func ParsePolicy(data []byte) (*Policy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var p Policy
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the policy for errors and returns a descriptive error if
// any field is invalid. The returned error wraps ErrConfigInvalid.
func (p *Policy) Validate() error {
	var errs []string

	errs = p.validateLandlock(errs)
	errs = p.validateSeccomp(errs)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// validateLandlock checks Landlock fields and appends any validation errors
// to errs.
func (p *Policy) validateLandlock(errs []string) []string {
	for i, r := range p.Landlock.Rules {
		if r.Path == "" {
			errs = append(errs, fmt.Sprintf("Landlock.Rules[%d]: path must not be empty", i))
			continue
		}
		if pathutil.ContainsNullByte(r.Path) {
			errs = append(errs, fmt.Sprintf("Landlock.Rules[%d]: path must not contain null bytes", i))
			continue
		}
		if !filepath.IsAbs(r.Path) {
			errs = append(errs, fmt.Sprintf("Landlock.Rules[%d]: %q must be an absolute path", i, r.Path))
		}
		if err := checkAccess(r.Access); err != nil {
			errs = append(errs, fmt.Sprintf("Landlock.Rules[%d]: %v", i, err))
		}
	}
	return errs
}

// validateSeccomp checks seccomp fields and appends any validation errors
// to errs.
func (p *Policy) validateSeccomp(errs []string) []string {
	s := p.Seccomp
	if s.Stricter && (len(s.Categories) > 0 || len(s.Syscalls) > 0 || s.NoDefaults) {
		errs = append(errs, "Seccomp: Stricter cannot be combined with Categories, Syscalls or NoDefaults")
	}
	for i, name := range s.Categories {
		if err := checkCategory(name); err != nil {
			errs = append(errs, fmt.Sprintf("Seccomp.Categories[%d]: %v", i, err))
		}
	}
	return errs
}

// expandRules resolves glob patterns in rules. Plain paths are passed
// through even when they do not exist, so the Landlock stage can report
// them; a glob with no match contributes nothing.
func expandRules(rules []PathRule) ([]PathRule, error) {
	out := make([]PathRule, 0, len(rules))
	for _, r := range rules {
		if !pathutil.IsGlobPattern(r.Path) {
			out = append(out, r)
			continue
		}
		matches, err := pathutil.ExpandGlob(r.Path, 0)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", r.Path, err)
		}
		for _, m := range matches {
			out = append(out, PathRule{Path: m, Access: r.Access})
		}
	}
	return out, nil
}
