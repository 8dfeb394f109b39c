package landlock

import "errors"

// Sentinel errors returned by the landlock package. Kernel failures are
// returned as wrapped golang.org/x/sys/unix.Errno values instead.
var (
	// ErrApplied indicates the ruleset was already enforced and can no
	// longer be modified or applied again.
	ErrApplied = errors.New("landlock: ruleset already applied")

	// ErrClosed indicates the ruleset was discarded with Close.
	ErrClosed = errors.New("landlock: ruleset closed")

	// ErrInvalidAccess indicates an access specification could not be parsed
	// or contains no right the ruleset handles.
	ErrInvalidAccess = errors.New("landlock: invalid access")

	// ErrUnsupported indicates the running kernel does not provide Landlock.
	ErrUnsupported = errors.New("landlock: not supported by the running kernel")
)
