//go:build linux && amd64

package kernel

import (
	"errors"
	"testing"

	"github.com/syndtr/gocapability/capability"
	"golang.org/x/sys/unix"
)

func TestDetect(t *testing.T) {
	v, err := Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if v.Major < 3 {
		t.Fatalf("implausible kernel version %v", v)
	}
}

func TestRelease_UnameError(t *testing.T) {
	orig := unameFn
	t.Cleanup(func() { unameFn = orig })
	unameFn = func(buf *unix.Utsname) int { return -int(unix.EFAULT) }

	if _, err := Release(); !errors.Is(err, unix.EFAULT) {
		t.Fatalf("Release error = %v, want EFAULT", err)
	}
	if _, err := Detect(); !errors.Is(err, unix.EFAULT) {
		t.Fatalf("Detect error = %v, want EFAULT", err)
	}
}

func TestRelease_Parsed(t *testing.T) {
	orig := unameFn
	t.Cleanup(func() { unameFn = orig })
	unameFn = func(buf *unix.Utsname) int {
		copy(buf.Release[:], "6.8.0-45-generic")
		return 0
	}

	v, err := Detect()
	if err != nil {
		t.Fatal(err)
	}
	if v != (Version{6, 8, 0}) {
		t.Fatalf("Detect() = %v", v)
	}
}

func TestHasSysAdmin(t *testing.T) {
	// Only checks that the capability sets load; the answer depends on how
	// the tests are run.
	if _, err := HasSysAdmin(); err != nil {
		t.Fatalf("HasSysAdmin: %v", err)
	}
}

func TestHasSysAdmin_LoadError(t *testing.T) {
	orig := loadCapsFn
	t.Cleanup(func() { loadCapsFn = orig })
	loadCapsFn = func() (capability.Capabilities, error) { return nil, unix.ESRCH }

	if _, err := HasSysAdmin(); !errors.Is(err, unix.ESRCH) {
		t.Fatalf("HasSysAdmin error = %v, want ESRCH", err)
	}
}
