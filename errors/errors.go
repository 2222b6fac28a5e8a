package errors

import (
	"fmt"
	"strings"
)

type ErrorCode int

const (
	InternalError ErrorCode = iota
	InvalidConfiguration
	SourceUnavailable
	SchemaUnsupported
	ClosureCorrupted
	SchemaMismatch
	PredicateEvaluationError
	InvalidScanOption
)

func (c ErrorCode) String() string {
	switch c {
	case InternalError:
		return "InternalError"
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case SourceUnavailable:
		return "SourceUnavailable"
	case SchemaUnsupported:
		return "SchemaUnsupported"
	case ClosureCorrupted:
		return "ClosureCorrupted"
	case SchemaMismatch:
		return "SchemaMismatch"
	case PredicateEvaluationError:
		return "PredicateEvaluationError"
	case InvalidScanOption:
		return "InvalidScanOption"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

func NewInternalError(ref string) ScanError {
	return NewScanErrorf(InternalError, "", "Internal error - reference %s please consult logs for details", ref)
}

func NewInvalidConfigurationError(msg string) ScanError {
	return NewScanErrorf(InvalidConfiguration, "", "Invalid configuration: %s", msg)
}

func NewSourceUnavailableError(source string, cause error) ScanError {
	if cause == nil {
		return NewScanErrorf(SourceUnavailable, source, "Source %s is unavailable", source)
	}
	return NewScanErrorf(SourceUnavailable, source, "Source %s is unavailable: %v", source, cause).withCause(cause)
}

func NewSchemaUnsupportedError(source string, column string, typeName string) ScanError {
	return NewScanErrorf(SchemaUnsupported, source, "Source %s column %s has unsupported type %s", source, column, typeName)
}

func NewClosureCorruptedError(msg string) ScanError {
	return NewScanErrorf(ClosureCorrupted, "", "Scan token corrupted: %s", msg)
}

func NewUnknownColumnError(source string, column string) ScanError {
	return NewScanErrorf(SchemaMismatch, source, "Source %s does not have a column %s", source, column)
}

func NewSchemaMismatchError(source string, msg string) ScanError {
	return NewScanErrorf(SchemaMismatch, source, "Schema mismatch for source %s: %s", source, msg)
}

func NewPredicateEvaluationError(msg string) ScanError {
	return NewScanErrorf(PredicateEvaluationError, "", "Invalid predicate: %s", msg)
}

func NewInvalidScanOptionError(source string, msg string) ScanError {
	return NewScanErrorf(InvalidScanOption, source, "Invalid scan option for source %s: %s", source, msg)
}

func NewScanErrorf(errorCode ErrorCode, source string, msgFormat string, args ...interface{}) ScanError {
	msg := fmt.Sprintf(fmt.Sprintf("PSC%04d - %s", errorCode, msgFormat), args...)
	return ScanError{Code: errorCode, Source: source, Msg: msg}
}

func NewScanError(errorCode ErrorCode, msg string) ScanError {
	return ScanError{Code: errorCode, Msg: msg}
}

func Error(msg string) error {
	return New(msg)
}

// ScanError is any kind of error that is surfaced to the caller of the bridge (the plan builder or the plan
// executor). Source carries the originating source identifier when one is known.
type ScanError struct {
	Code   ErrorCode
	Source string
	Msg    string
	cause  error
}

func (u ScanError) Error() string {
	return u.Msg
}

func (u ScanError) Unwrap() error {
	return u.cause
}

func (u ScanError) withCause(cause error) ScanError {
	u.cause = cause
	return u
}

// WithSource returns a copy of the error attributed to the given source, if it does not already have one.
func (u ScanError) WithSource(source string) ScanError {
	if u.Source == "" {
		u.Source = source
	}
	return u
}

// CallerDefect is true for errors caused by the planner or the token transport rather than the environment.
func (u ScanError) CallerDefect() bool {
	return u.Code == SchemaMismatch || u.Code == ClosureCorrupted
}

// AsScanError returns the first ScanError in the chain of err.
func AsScanError(err error) (ScanError, bool) {
	var se ScanError
	if As(err, &se) {
		return se, true
	}
	return ScanError{}, false
}

// HasCode reports whether err carries a ScanError with the given code.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsScanError(err)
	return ok && se.Code == code
}

// MaybeAddStack adds a stack trace to err unless it is already a ScanError, which is meant for the user.
func MaybeAddStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(ScanError); ok {
		return err
	}
	return WithStack(err)
}

func joinNames(names []string) string {
	sb := strings.Builder{}
	for i, name := range names {
		sb.WriteString(name)
		if i != len(names)-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}

func NewDuplicateColumnError(source string, columns []string) ScanError {
	return NewScanErrorf(SchemaMismatch, source, "Duplicate columns requested from source %s: %s", source, joinNames(columns))
}
