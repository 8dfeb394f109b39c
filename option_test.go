package jailkit

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewApplyOptions_Defaults(t *testing.T) {
	o := newApplyOptions(nil)
	if o.logger != slog.Default() {
		t.Error("logger should default to slog.Default()")
	}
	if o.env != nil || o.stdin != nil || o.stdout != nil || o.stderr != nil {
		t.Errorf("unexpected non-zero options: %+v", o)
	}
}

func TestWithLogger(t *testing.T) {
	l := slog.New(slog.DiscardHandler)
	o := newApplyOptions([]Option{WithLogger(l)})
	if o.logger != l {
		t.Error("WithLogger did not set the logger")
	}

	o = newApplyOptions([]Option{WithLogger(nil)})
	if o.logger != slog.Default() {
		t.Error("WithLogger(nil) should fall back to slog.Default()")
	}
}

func TestWithEnvAppends(t *testing.T) {
	o := newApplyOptions([]Option{WithEnv("A=1"), WithEnv("B=2", "C=3")})
	if got := strings.Join(o.env, ","); got != "A=1,B=2,C=3" {
		t.Errorf("env = %q, want %q", got, "A=1,B=2,C=3")
	}
}

func TestWithEnvCopiesInput(t *testing.T) {
	env := []string{"A=1"}
	opt := WithEnv(env...)
	env[0] = "A=changed"

	o := newApplyOptions([]Option{opt})
	if o.env[0] != "A=1" {
		t.Errorf("env[0] = %q, want %q", o.env[0], "A=1")
	}
}

func TestWithStdio(t *testing.T) {
	in := strings.NewReader("input")
	var out, errBuf bytes.Buffer
	o := newApplyOptions([]Option{WithStdio(in, &out, &errBuf)})

	if o.stdin != in {
		t.Error("stdin not set")
	}
	if o.stdout != &out {
		t.Error("stdout not set")
	}
	if o.stderr != &errBuf {
		t.Error("stderr not set")
	}
}

func TestWithNewSession(t *testing.T) {
	if newApplyOptions(nil).newSession {
		t.Error("newSession should default to false")
	}
	if !newApplyOptions([]Option{WithNewSession()}).newSession {
		t.Error("WithNewSession did not set newSession")
	}
}
