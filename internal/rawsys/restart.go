//go:build linux && amd64

package rawsys

import "golang.org/x/sys/unix"

// signed is the set of raw result types able to carry -EINTR.
type signed interface {
	~int | ~int32 | ~int64
}

const eintr = -int(unix.EINTR)

// Restart calls call until it returns something other than -EINTR and
// returns that result. Being interrupted by a signal is not a failure of the
// operation, so callers that did not ask to observe signal delivery never see
// it.
func Restart[R signed](call func() R) R {
	for {
		if r := call(); r != R(eintr) {
			return r
		}
	}
}
