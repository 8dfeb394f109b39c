//go:build linux && amd64

package kernel

import (
	"fmt"

	"github.com/syndtr/gocapability/capability"
)

// loadCapsFn loads the capability sets of the calling process, overridden in
// tests.
var loadCapsFn = func() (capability.Capabilities, error) {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return nil, err
	}
	if err := caps.Load(); err != nil {
		return nil, err
	}
	return caps, nil
}

// HasSysAdmin reports whether CAP_SYS_ADMIN is in the effective set. Without
// it, seccomp and Landlock both require no_new_privs.
func HasSysAdmin() (bool, error) {
	caps, err := loadCapsFn()
	if err != nil {
		return false, fmt.Errorf("load capabilities: %w", err)
	}
	return caps.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN), nil
}
