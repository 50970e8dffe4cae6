// Package fault defines the error kinds surfaced by the query engine.
// Every error carries the operation and the offending container or reference id.
// Raw SQL is kept on the error for diagnostics but never rendered by Error().
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error
type Kind int

const (
	// Unknown is the zero kind, used for errors that did not originate in the engine
	Unknown Kind = iota
	// NotFound means an unknown table, container, window or reference id
	NotFound
	// Unparseable means an expression could not be resolved against the context
	Unparseable
	// InvalidArgument means malformed filters, sort specs or ids
	InvalidArgument
	// AccessDenied means the access provider refused rather than filtered
	AccessDenied
	// ExecutionFailure wraps an error returned by the database executor
	ExecutionFailure
	// Cancelled means the caller aborted the call
	Cancelled
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unparseable:
		return "unparseable"
	case InvalidArgument:
		return "invalid_argument"
	case AccessDenied:
		return "access_denied"
	case ExecutionFailure:
		return "execution_failure"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the structured error returned by engine operations
type Error struct {
	Kind    Kind
	Op      string // operation, e.g. "query.ListContainerRows"
	Ref     string // offending container/reference/window id
	Message string
	Err     error
	SQL     string // diagnostic only
}

// Error implements the error interface. SQL text is deliberately omitted.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Ref != "" {
		msg += " [" + e.Ref + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil && e.Kind != ExecutionFailure {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostic renders the error including the SQL statement, for internal logs only
func (e *Error) Diagnostic() string {
	msg := e.Error()
	if e.Err != nil && e.Kind == ExecutionFailure {
		msg += ": " + e.Err.Error()
	}
	if e.SQL != "" {
		msg += " (sql: " + e.SQL + ")"
	}
	return msg
}

// New creates an error of the given kind with a formatted message
func New(kind Kind, op, ref, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Ref: ref, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err as an error of the given kind. A nil err yields nil.
// When err is already an *Error its kind is kept and only missing context is filled in.
func Wrap(kind Kind, op, ref string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		out := *fe
		if out.Op == "" {
			out.Op = op
		}
		if out.Ref == "" {
			out.Ref = ref
		}
		return &out
	}
	return &Error{Kind: kind, Op: op, Ref: ref, Err: err}
}

// WithSQL attaches the diagnostic SQL to err when it is an *Error
func WithSQL(err error, sql string) error {
	var fe *Error
	if errors.As(err, &fe) {
		out := *fe
		out.SQL = sql
		return &out
	}
	return err
}

// KindOf returns the kind of err, or Unknown
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err is an engine error of the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound returns true if the error is a NotFound error
func IsNotFound(err error) bool { return Is(err, NotFound) }

// IsUnparseable returns true if the error is an Unparseable error
func IsUnparseable(err error) bool { return Is(err, Unparseable) }

// IsCancelled returns true if the error is a Cancelled error
func IsCancelled(err error) bool { return Is(err, Cancelled) }
