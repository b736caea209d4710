// ABOUTME: Error model shared by Database, Query and the backends
// ABOUTME: Closed failure taxonomy plus the native engine code/message pair

package dbms

import (
	"errors"
	"fmt"
)

// ErrorCode is the coarse outcome recorded after every operation.
type ErrorCode int

const (
	OK ErrorCode = iota
	Failed
)

// Kind classifies a failure.
type Kind int

const (
	KindNone Kind = iota
	ConnectionFailure
	StatementError
	TransactionFailure
	ResourceReleaseFailure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case ConnectionFailure:
		return "connection failure"
	case StatementError:
		return "statement error"
	case TransactionFailure:
		return "transaction failure"
	case ResourceReleaseFailure:
		return "resource release failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrNotOpen is returned when an operation needs a live connection.
	ErrNotOpen = errors.New("database is not open")

	// ErrNoStatement is returned when a Query has no prepared statement.
	ErrNoStatement = errors.New("no prepared statement")

	// ErrInvalidPosition is returned for negative binding positions.
	ErrInvalidPosition = errors.New("invalid binding position")

	// ErrUnsupportedType is returned by Bind for values outside the binding set.
	ErrUnsupportedType = errors.New("unsupported binding type")

	// ErrUnknownBackend is returned by Lookup.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Error is the record kept as LastError and returned by failing operations.
// The zero value means OK.
type Error struct {
	Code       ErrorCode
	Kind       Kind
	Op         string
	NativeCode int
	Message    string

	err error
}

// OK reports whether the record describes a success.
func (e Error) OK() bool {
	return e.Code == OK
}

func (e *Error) Error() string {
	if e.Code == OK {
		return "ok"
	}
	if e.NativeCode != 0 {
		return fmt.Sprintf("%s: %s (%s, native code %d)", e.Op, e.Message, e.Kind, e.NativeCode)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.err
}

// newError builds a failure record, asking the backend for native diagnostics.
func newError(b Backend, kind Kind, op string, err error) *Error {
	e := &Error{
		Code:    Failed,
		Kind:    kind,
		Op:      op,
		Message: err.Error(),
		err:     err,
	}
	if b != nil {
		if code, msg := b.NativeError(err); code != 0 {
			e.NativeCode = code
			if msg != "" {
				e.Message = msg
			}
		}
	}
	return e
}

// record stores the outcome of an operation in *last and returns it as an error.
func record(last *Error, e *Error) error {
	if e == nil {
		*last = Error{}
		return nil
	}
	*last = *e
	return e
}
