// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/homewire/controller"
	"github.com/bureau-foundation/homewire/lib/config"
	"github.com/bureau-foundation/homewire/lib/netutil"
)

// ErrorCategory classifies command errors so that scripts can tell a
// usage mistake from an unreachable controller by exit code alone.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing arguments, unparseable values, bad settings.
	CategoryValidation ErrorCategory = "validation"

	// CategoryForbidden indicates the controller rejected the credentials.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryTransient indicates a temporary failure: network error,
	// timeout, controller restart. Retrying later may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates anything else.
	CategoryInternal ErrorCategory = "internal"
)

// Exit codes by category, following sysexits(3).
const (
	exitUsage    = 64 // EX_USAGE
	exitTempFail = 75 // EX_TEMPFAIL
	exitNoPerm   = 77 // EX_NOPERM
)

// ToolError is a categorized error returned by CLI commands.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// ExitCode maps the category to a sysexits code.
func (e *ToolError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return exitUsage
	case CategoryForbidden:
		return exitNoPerm
	case CategoryTransient:
		return exitTempFail
	default:
		return 1
	}
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error: the credentials were refused.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in a ToolError whose category follows the error
// chain. Errors that already carry a category are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return err
	}

	var (
		validationError *controller.ValidationError
		fieldError      *config.FieldError
		transportError  *controller.TransportError
	)
	switch {
	case errors.As(err, &validationError), errors.As(err, &fieldError):
		return &ToolError{Category: CategoryValidation, Err: err}
	case errors.Is(err, controller.ErrAuthenticationRejected):
		return &ToolError{Category: CategoryForbidden, Err: err}
	case netutil.IsConnectionError(err):
		return &ToolError{Category: CategoryTransient, Err: err}
	case errors.As(err, &transportError):
		if transportError.StatusCode >= 500 || transportError.StatusCode == 0 {
			return &ToolError{Category: CategoryTransient, Err: err}
		}
		return &ToolError{Category: CategoryInternal, Err: err}
	}
	return &ToolError{Category: CategoryInternal, Err: err}
}
