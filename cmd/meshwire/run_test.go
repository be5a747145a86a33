package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureExit replaces osExit with a panicking stand-in and runs fn,
// returning the exit code it was called with, or -1 if it never was.
func captureExit(t *testing.T, fn func()) (code int) {
	t.Helper()
	orig := osExit
	osExit = func(c int) { panic(exitSentinel(c)) }
	defer func() { osExit = orig }()

	code = -1
	defer func() {
		if r := recover(); r != nil {
			sentinel, ok := r.(exitSentinel)
			if !ok {
				panic(r)
			}
			code = int(sentinel)
		}
	}()
	fn()
	return code
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func withArgs(t *testing.T, args []string, fn func()) {
	t.Helper()
	orig := os.Args
	os.Args = args
	defer func() { os.Args = orig }()
	fn()
}

func TestMainNoArgsExitsOne(t *testing.T) {
	withArgs(t, []string{"meshwire"}, func() {
		if code := captureExit(t, main); code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	})
}

func TestMainUnknownCommandExitsOne(t *testing.T) {
	withArgs(t, []string{"meshwire", "frobnicate"}, func() {
		if code := captureExit(t, main); code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	})
}

func TestMainVersion(t *testing.T) {
	withArgs(t, []string{"meshwire", "version"}, func() {
		out := captureStdout(t, func() {
			if code := captureExit(t, main); code != -1 {
				t.Errorf("version exited with %d", code)
			}
		})
		if !strings.Contains(out, "meshwire "+version) {
			t.Errorf("version output missing version string: %q", out)
		}
	})
}

func TestFatalExitsOne(t *testing.T) {
	code := captureExit(t, func() {
		fatal("boom: %s", "reason")
	})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestDownWithoutDaemonFails(t *testing.T) {
	dir := t.TempDir()
	code := captureExit(t, func() {
		runDown([]string{"--settings", dir + "/settings.yaml"})
	})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
