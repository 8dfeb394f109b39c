//go:build !(linux && amd64)

package jailkit

import (
	"context"
	"os/exec"
)

// Apply returns ErrUnsupportedPlatform: the sandboxing primitives exist
// only on linux/amd64.
func Apply(p *Policy, opts ...Option) error {
	return ErrUnsupportedPlatform
}

// SetNoNewPrivs returns ErrUnsupportedPlatform.
func SetNoNewPrivs() error {
	return ErrUnsupportedPlatform
}

// HasNoNewPrivs always reports false.
func HasNoNewPrivs() bool {
	return false
}

// Harden returns ErrUnsupportedPlatform.
func Harden() error {
	return ErrUnsupportedPlatform
}

// MaybeSandboxInit always returns false.
func MaybeSandboxInit() bool {
	return false
}

func checkAccess(string) error   { return nil }
func checkCategory(string) error { return nil }

// Command returns ErrUnsupportedPlatform.
func Command(ctx context.Context, p *Policy, argv []string, opts ...Option) (*exec.Cmd, error) {
	return nil, ErrUnsupportedPlatform
}
