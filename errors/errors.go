/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package errors provides error wrapping utilities and the error kinds used
// to classify build failures throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced to a caller wraps exactly one of
// these sentinels so call sites can classify with errors.Is.
var (
	// ErrConfig indicates invalid or conflicting configuration. Always
	// fatal, reported before any build step runs.
	ErrConfig = errors.New("configuration error")

	// ErrIsolation indicates an isolation backend problem: backend
	// unavailable, unsupported interpreter version, unknown image or
	// platform. Fatal to the build attempt, never retried automatically.
	ErrIsolation = errors.New("isolation error")

	// ErrSecurity indicates a refused dangerous operation: unsafe cleanup
	// target, archive path traversal. Always fatal, never partially applied.
	ErrSecurity = errors.New("security violation")

	// ErrBuild indicates the external build backend failed. Reported as a
	// failed result so pipelines can continue with other projects.
	ErrBuild = errors.New("build failed")
)

// Wrap wraps an error with a descriptive action and optional detail.
// It returns a formatted error in the form "failed to <action> [(<detail>)]: <error>".
//
// Example usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap("create environment", "", err)
//	}
//
//	if err := parseFile(path); err != nil {
//	    return errors.Wrap("parse manifest", path, err)
//	}
func Wrap(action, detail string, err error) error {
	if err == nil {
		return nil
	}

	if detail != "" {
		return fmt.Errorf("failed to %s (%s): %w", action, detail, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// WrapKind wraps an error like Wrap and additionally tags it with kind so
// callers can classify the result with errors.Is.
func WrapKind(kind error, action, detail string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, Wrap(action, detail, err))
}

// Configf returns a configuration error with a formatted message.
func Configf(format string, args ...interface{}) error {
	return kindf(ErrConfig, format, args...)
}

// Isolationf returns an isolation error with a formatted message.
func Isolationf(format string, args ...interface{}) error {
	return kindf(ErrIsolation, format, args...)
}

// Securityf returns a security violation error with a formatted message.
func Securityf(format string, args ...interface{}) error {
	return kindf(ErrSecurity, format, args...)
}

// Buildf returns a build failure error with a formatted message.
func Buildf(format string, args ...interface{}) error {
	return kindf(ErrBuild, format, args...)
}

func kindf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers do not need both this package and the stdlib one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
