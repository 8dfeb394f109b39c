// Package jailkit confines the calling process with Linux kernel sandboxing
// primitives: no_new_privs, Landlock filesystem rulesets and seccomp-BPF
// syscall filters.
//
// Every restriction is one-way. Once applied it cannot be lifted, and it is
// inherited by every program the process executes afterwards.
//
// Key features:
//   - Landlock rulesets granting read, write and execute beneath paths
//   - Seccomp allow-lists assembled from named syscall categories
//   - A fixed stricter-than-strict-mode seccomp baseline
//   - JSON policies applied in one fail-closed call
//   - Re-exec helper for running another program under a policy
//   - No CGo
//
// Basic usage:
//
//	p := jailkit.DefaultPolicy()
//	p.Landlock.Rules = append(p.Landlock.Rules, jailkit.PathRule{Path: "/srv/data", Access: "rw"})
//	if err := jailkit.Apply(p); err != nil {
//	    log.Fatal(err)
//	}
//
// To run another program under a policy, call MaybeSandboxInit first thing in
// main and start the program with Command:
//
//	func main() {
//	    jailkit.MaybeSandboxInit()
//	    cmd, err := jailkit.Command(ctx, jailkit.DefaultPolicy(), []string{"make", "test"},
//	        jailkit.WithStdio(os.Stdin, os.Stdout, os.Stderr), jailkit.WithNewSession())
//	    ...
//	}
//
// The lower-level builders live in the landlock and seccomp packages.
package jailkit
