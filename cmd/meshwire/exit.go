package main

import (
	"fmt"
	"os"
)

// osExit is swapped out by tests for a function that panics with an
// exitSentinel, so a recover can observe the exit code while execution
// still stops at the call site.
var osExit = os.Exit

// exitSentinel carries the exit code through the panic raised by test
// replacements of osExit.
type exitSentinel int

// fatal writes a formatted message to stderr and exits with code 1 via
// osExit, keeping every error path in this package interceptable.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	osExit(1)
}
