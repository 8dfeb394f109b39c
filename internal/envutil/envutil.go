// Package envutil builds the environment of jailkit's re-exec child.
//
// Variables whose name starts with InternalPrefix belong to jailkit: the
// parent sets them to talk to the child, and neither the caller's
// environment nor the sandboxed program may carry them.
package envutil

import (
	"strconv"
	"strings"
)

// InternalPrefix marks jailkit's own variables.
const InternalPrefix = "_JAILKIT_"

// PolicyFDKey names the descriptor the re-exec child reads its policy from.
const PolicyFDKey = InternalPrefix + "POLICY_FD"

// name returns the name part of an environment entry.
func name(entry string) string {
	if i := strings.IndexByte(entry, '='); i >= 0 {
		return entry[:i]
	}
	return entry
}

// IsInternal reports whether entry is one of jailkit's own variables. Only
// the name is inspected.
func IsInternal(entry string) bool {
	return strings.HasPrefix(name(entry), InternalPrefix)
}

// Strip returns a copy of env without jailkit's own variables. The
// sandboxed program is exec'd with this environment.
func Strip(env []string) []string {
	out := make([]string, 0, len(env))
	for _, e := range env {
		if !IsInternal(e) {
			out = append(out, e)
		}
	}
	return out
}

// Child returns the environment for a re-exec child: parent with extra
// applied on top and the policy descriptor appended. Internal variables
// from either input are dropped, so a caller cannot redirect the child to
// another policy.
//
// An extra entry replaces every parent entry of the same name in place; new
// names are appended in the order they first appear, and if extra repeats a
// name the last entry wins.
func Child(parent, extra []string, policyFD int) []string {
	overrides := make(map[string]string, len(extra))
	var order []string
	for _, e := range extra {
		if IsInternal(e) {
			continue
		}
		k := name(e)
		if _, ok := overrides[k]; !ok {
			order = append(order, k)
		}
		overrides[k] = e
	}

	replaced := make(map[string]bool, len(overrides))
	out := make([]string, 0, len(parent)+len(order)+1)
	for _, e := range parent {
		if IsInternal(e) {
			continue
		}
		k := name(e)
		if o, ok := overrides[k]; ok {
			out = append(out, o)
			replaced[k] = true
			continue
		}
		out = append(out, e)
	}
	for _, k := range order {
		if !replaced[k] {
			out = append(out, overrides[k])
		}
	}
	return append(out, PolicyFDKey+"="+strconv.Itoa(policyFD))
}
