//go:build linux && amd64

package jailkit

import (
	"github.com/zhangyunhao116/jailkit/landlock"
	"github.com/zhangyunhao116/jailkit/seccomp"
)

func checkAccess(s string) error {
	_, err := landlock.ParseAccess(s)
	return err
}

func checkCategory(name string) error {
	_, err := seccomp.Describe(name)
	return err
}
