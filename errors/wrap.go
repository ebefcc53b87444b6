// Package errors exposes the subset of the github.com/pkg/errors API used across the module together with
// the coded RowStoreError type that is surfaced to users.
//
// Every error that crosses a package boundary should carry a stack trace. Coded errors are the exception: they
// are values the caller is expected to inspect, so MaybeAddStack leaves them alone.
package errors

import (
	stderrors "errors" //nolint: depguard

	"github.com/pkg/errors" //nolint: depguard
)

// New returns an error with the supplied message and records the stack trace at the point it was called.
func New(message string) error {
	return errors.New(message)
}

// Errorf formats according to a format specifier and records the stack trace at the point it was called.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Error is shorthand for New.
func Error(msg string) error {
	return errors.New(msg)
}

// Wrap annotates err with a message and a stack trace. If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message and a stack trace. If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// WithStack annotates err with a stack trace. If err is nil, WithStack returns nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if hasStack(err) {
		return err
	}
	return errors.WithStack(err)
}

// MaybeAddStack adds a stack trace unless err is a RowStoreError.
func MaybeAddStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(RowStoreError); ok {
		return err
	}
	return WithStack(err)
}

// Cause returns the underlying cause of the error, if possible.
func Cause(err error) error {
	return errors.Cause(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target, and if so, sets target to that error value.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// hasStack avoids piling a second trace onto an error that was already wrapped further down the call chain.
func hasStack(err error) bool {
	for err != nil {
		if _, ok := err.(stackTracer); ok {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
