package apperr

import (
	"errors"
	"fmt"
)

// Kinds every domain error reduces to. Callers classify with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrState      = errors.New("invalid state")
	ErrDependency = errors.New("dependency failure")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with the given message that matches kind with errors.Is.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

type dependencyError struct {
	op  string
	err error
}

func (e *dependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *dependencyError) Unwrap() []error {
	return []error{ErrDependency, e.err}
}

// Dependency wraps a storage or transport failure. Domain errors that are
// already classified pass through untouched.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return &dependencyError{op: op, err: err}
}

// Kind returns the kind sentinel err belongs to, or nil when unclassified.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrState, ErrDependency} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
