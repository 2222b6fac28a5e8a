// Package errors offers the github.com/pkg/errors API with one change: an error only records a stack trace
// when nothing further down its chain already has one, so a logged error carries a single root stack trace
// however many times it has been wrapped. It also defines ScanError, the coded error surfaced to callers.
package errors

import (
	stderrors "errors" //nolint: depguard
	"fmt"
	"io"

	"github.com/pkg/errors" //nolint: depguard
)

// New returns an error with the supplied message and the stack trace at the point it was called.
func New(message string) error {
	return newStackErr(nil, message)
}

// Errorf formats according to a format specifier and returns the string as a value that satisfies error.
func Errorf(format string, args ...interface{}) error {
	return newStackErr(nil, fmt.Sprintf(format, args...))
}

// Wrapf annotates err with the format specifier. If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, fmt.Sprintf(format, args...))
}

// Wrap annotates err with the supplied message. If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, message)
}

// WithStack annotates err with a stack trace at the point WithStack was called, unless it already has one.
// If err is nil, WithStack returns nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if hasStack(err) {
		return err
	}
	return newStackErr(err, "")
}

// Cause returns the innermost error of the chain built with this package.
func Cause(err error) error {
	for err != nil {
		c, ok := err.(causer)
		if !ok || c.Cause() == nil {
			break
		}
		err = c.Cause()
	}
	return err
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target, and if so, sets target to that error value
// and returns true.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

type stackErr struct {
	cause error
	stack errors.StackTrace
	msg   string
}

func newStackErr(cause error, msg string) error {
	var stack errors.StackTrace
	if cause == nil || !hasStack(cause) {
		// drop the frames of this function and of the public function calling it
		stack = errors.New("").(stackTracer).StackTrace()[2:]
	}
	return &stackErr{
		cause: cause,
		stack: stack,
		msg:   msg,
	}
}

func hasStack(err error) bool {
	for err != nil {
		if st, ok := err.(stackTracer); ok && st.StackTrace() != nil {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

func (e *stackErr) Error() string {
	if e.cause != nil {
		if e.msg != "" {
			return e.msg + ": " + e.cause.Error()
		}
		return e.cause.Error()
	}
	return e.msg
}

func (e *stackErr) Cause() error {
	return e.cause
}

func (e *stackErr) Unwrap() error { return e.cause }

// StackTrace returns the stack recorded by this error, nil if a wrapped error holds the root stack.
func (e *stackErr) StackTrace() errors.StackTrace {
	return e.stack
}

// nolint:errcheck
func (e *stackErr) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			if e.cause != nil {
				fmt.Fprintf(s, "%+v", e.cause)
			}
			if e.msg != "" {
				if e.cause != nil {
					io.WriteString(s, "\n")
				}
				io.WriteString(s, e.msg)
			}
			if e.stack != nil {
				fmt.Fprintf(s, "%+v", e.stack)
			}
		} else {
			io.WriteString(s, e.Error())
		}
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type causer interface {
	Cause() error
}
