// Package persist marks failures of the backing store so callers can tell them
// apart from business-rule violations.
package persist

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Error wraps a storage failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err, otherwise an *Error for op.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Wrapf is like Wrap with a formatted operation.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Op: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is, or wraps, a storage failure.
func Is(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
