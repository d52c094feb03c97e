// Package errors provides error handling for scapegoat.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints on boundary errors
//
// Usage:
//
//	// Reject bad input at the boundary
//	if width <= 0 {
//	    return errors.Wrapf(errors.ErrInvalidWindow, "width must be positive, got %s", width)
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "pass --window 6h or set window.size in scapegoat.toml")
//
//	// Check errors
//	if errors.Is(err, errors.ErrMissingColumn) {
//	    // report the schema problem
//	}
//
// Only boundary problems (bad configuration, bad input columns) surface as
// errors. Degenerate graphs never produce errors; see internal/value.
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors for the boundary of the metrics engine.
// Use these with errors.Is() and wrap them with errors.Wrap() to add context.
var (
	// ErrInvalidRequest indicates a malformed request (unknown method name, bad option)
	ErrInvalidRequest = New("invalid request")

	// ErrInvalidWindow indicates a non-positive window width or step
	ErrInvalidWindow = New("invalid window")

	// ErrMissingColumn indicates a required input or table column is absent
	ErrMissingColumn = New("missing column")

	// ErrInvalidConfig indicates the loaded configuration failed validation
	ErrInvalidConfig = New("invalid configuration")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInputError reports whether err is one of the boundary input errors that
// callers should surface to the user instead of retrying.
func IsInputError(err error) bool {
	return err != nil && IsAny(err, ErrInvalidRequest, ErrInvalidWindow, ErrMissingColumn, ErrInvalidConfig)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}

// NewMissingColumnError reports the names of absent columns.
func NewMissingColumnError(columns ...string) error {
	return WithHint(
		Wrapf(ErrMissingColumn, "%v", columns),
		"check the column mapping under [input] in scapegoat.toml",
	)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}
