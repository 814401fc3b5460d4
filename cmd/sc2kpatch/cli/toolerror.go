// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory says what kind of mistake an error reports.
type ErrorCategory string

const (
	// CategoryValidation: the invocation is wrong (unknown command or
	// flag, bad argument count, conflicting flags, bad config value).
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a named input does not exist (a file the patch
	// source does not cover, a missing manifest or bundle).
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryInternal: the tool failed on data it produced itself.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError attaches a category to an error. The message and the
// wrapped chain are those of Err.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation formats a CategoryValidation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound formats a CategoryNotFound error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Internal formats a CategoryInternal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
