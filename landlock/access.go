//go:build linux && amd64

package landlock

import (
	"fmt"
	"strings"

	golandlock "github.com/landlock-lsm/go-landlock/landlock"
	ll "github.com/landlock-lsm/go-landlock/landlock/syscall"
)

// Access is a set of filesystem access rights.
type Access uint64

// Filesystem access rights handled by a Ruleset.
const (
	Execute Access = ll.AccessFSExecute
	Read    Access = ll.AccessFSReadFile
	Write   Access = ll.AccessFSWriteFile | ll.AccessFSTruncate

	ReadWrite    = Read | Write
	ReadExecute  = Read | Execute
	WriteExecute = Write | Execute

	All = Read | Write | Execute
)

// truncate is the one handled right that needs Landlock ABI v3.
const truncate Access = ll.AccessFSTruncate

// String returns the kernel names of the rights in a, e.g.
// "{execute,read_file}".
func (a Access) String() string {
	return golandlock.AccessFSSet(a).String()
}

// Has reports whether a contains every right in b.
func (a Access) Has(b Access) bool {
	return a&b == b
}

// ParseAccess parses an access specification. It accepts the shorthand
// letters r, w and x in any combination ("r", "rw", "rx", "rwx") or a
// comma-separated list of the names read, write, execute.
func ParseAccess(s string) (Access, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty access", ErrInvalidAccess)
	}

	var a Access
	if strings.Trim(s, "rwx") == "" {
		for _, c := range s {
			switch c {
			case 'r':
				a |= Read
			case 'w':
				a |= Write
			case 'x':
				a |= Execute
			}
		}
		return a, nil
	}

	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(name) {
		case "read":
			a |= Read
		case "write":
			a |= Write
		case "execute", "exec":
			a |= Execute
		case "all":
			a |= All
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidAccess, name)
		}
	}
	return a, nil
}
