//go:build linux && amd64

package kernel

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/rawsys"
)

// unameFn is a function variable for uname(2), overridden in tests.
var unameFn = rawsys.Uname

// Release returns the kernel release string reported by uname(2).
func Release() (string, error) {
	var uts unix.Utsname
	if r := unameFn(&uts); rawsys.IsError(r) {
		return "", fmt.Errorf("uname: %w", rawsys.Err(r))
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}

// Detect returns the running kernel version.
func Detect() (Version, error) {
	rel, err := Release()
	if err != nil {
		return Version{}, err
	}
	return Parse(rel)
}
