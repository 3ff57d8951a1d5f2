package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport signals that a collaborator could not be reached (network failure, timeout, 5xx).
	ErrTransport = errors.New("transport error")
	// ErrDecode signals a response that is not JSON or does not have the expected shape.
	ErrDecode = errors.New("decode error")
	// ErrEmptyQuery signals a search query that trims to nothing.
	ErrEmptyQuery = errors.New("empty query")
	// ErrNoServerID signals a document the backend has not accepted yet.
	ErrNoServerID = errors.New("document has no server id")
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("not found")
	// ErrCircuitOpen signals that calls to a collaborator are short-circuited.
	ErrCircuitOpen = errors.New("circuit open")
)

// Error wraps a collaborator failure with the operation that produced it.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewTransportError wraps err as a TransportError for op.
func NewTransportError(op string, err error) error {
	return &Error{Op: op, Kind: ErrTransport, Err: err}
}

// NewDecodeError wraps err as a DecodeError for op.
func NewDecodeError(op string, err error) error {
	return &Error{Op: op, Kind: ErrDecode, Err: err}
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool { return errors.Is(err, ErrDecode) }
