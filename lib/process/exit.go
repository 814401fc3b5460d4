// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Exit terminates the process for the error returned by the command
// tree. Nil exits 0. Errors carrying an exit code exit with that code
// and print nothing, since the command already reported the outcome.
// Other errors go through [Fatal].
func Exit(err error) {
	if code, handled := exitCode(err); handled {
		os.Exit(code)
	}
	Fatal(err)
}

// exitCode returns the code for nil and for errors implementing
// ExitCode() int, and false for anything that still needs printing.
func exitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode(), true
	}
	return 0, false
}
