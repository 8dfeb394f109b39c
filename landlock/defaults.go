//go:build linux && amd64

package landlock

// defaultRules are the paths most programs touch implicitly.
var defaultRules = []Rule{
	{Path: "/dev/null", Access: ReadWrite},
	{Path: "/dev/random", Access: Read},
	{Path: "/dev/urandom", Access: Read},
	{Path: "/proc/self", Access: ReadWrite},
	{Path: "/proc", Access: Read},
	{Path: "/bin", Access: ReadExecute},
}

// Defaults returns a copy of the rules added by AddDefaults.
func Defaults() []Rule {
	return append([]Rule(nil), defaultRules...)
}
