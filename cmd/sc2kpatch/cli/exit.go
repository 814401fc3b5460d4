// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError ends the process with Code and no further message. Return
// it after the command has already printed its outcome, such as a
// batch report listing failed files or a verify table with unpatched
// ones, where a non-zero exit is an answer rather than a crash.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode is checked by the binary's main through an interface, so
// wrapped ExitErrors keep their code.
func (e *ExitError) ExitCode() int {
	return e.Code
}
