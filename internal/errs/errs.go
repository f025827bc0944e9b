// Package errs classifies the errors the command driver can return so
// that main can pick a single exit path without string-matching error
// messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which part of the system raised an error.
type Kind int

const (
	// IoError covers failures reading or writing the underlying byte
	// stream: missing files, permission errors, broken pipes.
	IoError Kind = iota
	// DecodeError covers a record that failed a well-formedness
	// invariant during decoding. Most callers treat these as data, not
	// failures (see marc.Invalid); this kind is for an invalid record
	// that aborts the run because --skip-invalid is off. A failure of
	// the underlying reader is an IoError.
	DecodeError
	// ExprParseError covers a syntax error in a filter expression.
	ExprParseError
	// ExprTypeError covers a static type mismatch in a filter
	// expression, caught at compile time.
	ExprTypeError
	// RegexError covers a regular expression that failed to compile.
	RegexError
	// UsageError covers invalid CLI flags or arguments.
	UsageError
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "io"
	case DecodeError:
		return "decode"
	case ExprParseError:
		return "expr_parse"
	case ExprTypeError:
		return "expr_type"
	case RegexError:
		return "regex"
	case UsageError:
		return "usage"
	default:
		return "unknown"
	}
}

// Error is a classified error: a Kind plus the underlying cause.
type Error struct {
	Kind Kind
	Op   string // the command or component that raised it, e.g. "filter", "stream.Open"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns a classified Error, or nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf is Wrap with a formatted cause.
func Wrapf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
