//go:build linux && amd64

package landlock

import (
	"fmt"

	ll "github.com/landlock-lsm/go-landlock/landlock/syscall"
)

// abiVersionFn is a function variable for the ABI probe, overridden in tests.
var abiVersionFn = ll.LandlockGetABIVersion

// Info describes Landlock support on the current kernel.
type Info struct {
	// Supported indicates whether Landlock is available.
	Supported bool

	// ABIVersion is the Landlock ABI version supported by the kernel.
	ABIVersion int

	// Features is a human-readable description of supported features.
	Features string
}

// ABI returns the Landlock ABI version of the running kernel.
func ABI() (int, error) {
	v, err := abiVersionFn()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return v, nil
}

// Detect checks Landlock support on the running kernel.
func Detect() Info {
	abi, err := ABI()
	if err != nil {
		return Info{Features: "landlock not available: " + err.Error()}
	}

	features := fmt.Sprintf("ABI v%d", abi)
	switch {
	case abi >= 3:
		features += " (fs access, refer, truncate)"
	case abi >= 2:
		features += " (fs access, refer)"
	case abi >= 1:
		features += " (fs access)"
	}

	return Info{
		Supported:  abi >= 1,
		ABIVersion: abi,
		Features:   features,
	}
}
