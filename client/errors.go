package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported by the database client.
type ErrorKind uint8

const (
	KindConnection ErrorKind = iota + 1
	KindAuth
	KindParse
	KindQuery
	KindProtocol
	KindNotConnected
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindParse:
		return "parse"
	case KindQuery:
		return "query"
	case KindProtocol:
		return "protocol"
	case KindNotConnected:
		return "not connected"
	default:
		return "unknown"
	}
}

// Error is returned by every Surreal method and by Response.Take when a
// statement failed.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// define all package level errors here
var (
	ErrNotConnected    = &Error{Kind: KindNotConnected, Message: "connection uninitialised"}
	ErrIndexOutOfRange = errors.New("surreal: statement index out of range")
	ErrClosed          = errors.New("surreal: client closed")
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}
