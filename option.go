package jailkit

import (
	"io"
	"log/slog"
)

// Option configures a single Apply or Command call.
type Option func(*applyOptions)

// applyOptions holds per-call configuration applied via Option functions.
type applyOptions struct {
	logger *slog.Logger
	env    []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newSession bool
}

func newApplyOptions(opts []Option) *applyOptions {
	o := &applyOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithLogger sets the structured logger used to report each stage. If nil,
// slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *applyOptions) {
		o.logger = l
	}
}

// WithEnv adds environment variables for a command started by Command.
// Each entry should be in "KEY=VALUE" format.
func WithEnv(env ...string) Option {
	cpy := append([]string(nil), env...)
	return func(o *applyOptions) {
		o.env = append(o.env, cpy...)
	}
}

// WithStdio sets the standard streams of a command started by Command.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(o *applyOptions) {
		o.stdin = stdin
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithNewSession starts a command created by Command in its own session,
// detached from the caller's controlling terminal, and kills the whole
// session when the context is cancelled. Use it whenever the caller runs on
// a terminal the sandboxed program must not be able to write input to.
func WithNewSession() Option {
	return func(o *applyOptions) {
		o.newSession = true
	}
}
