// Package kernel reports the running Linux kernel version.
package kernel

import (
	"fmt"
	"strconv"
	"strings"
)

// Version represents a parsed Linux kernel version.
type Version struct {
	Major, Minor, Patch int
}

// Minimum kernel versions for the features used by jailkit.
var (
	SeccompFilter    = Version{Major: 3, Minor: 5}
	SeccompTSync     = Version{Major: 3, Minor: 17}
	KillProcess      = Version{Major: 4, Minor: 14}
	CloseRange       = Version{Major: 5, Minor: 9}
	Landlock         = Version{Major: 5, Minor: 13}
	LandlockTruncate = Version{Major: 6, Minor: 2}
)

// Parse parses a kernel release string like "5.15.0-generic". Only the
// major.minor.patch components are extracted; any trailing suffix is
// ignored.
func Parse(s string) (Version, error) {
	if idx := strings.IndexAny(s, "-+ "); idx != -1 {
		s = s[:idx]
	}
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("invalid kernel version: %q", s)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("invalid major version in %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("invalid minor version in %q: %w", s, err)
	}

	var patch int
	if len(parts) == 3 && parts[2] != "" {
		patch, err = strconv.Atoi(parts[2])
		if err != nil {
			return Version{}, fmt.Errorf("invalid patch version in %q: %w", s, err)
		}
	}

	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

// AtLeast reports whether v is at least want, comparing major and minor only.
func (v Version) AtLeast(want Version) bool {
	if v.Major != want.Major {
		return v.Major > want.Major
	}
	return v.Minor >= want.Minor
}

// String returns the version in "major.minor.patch" format.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
