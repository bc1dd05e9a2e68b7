package surreal

import (
	"errors"
	"strings"

	"github.com/harry-xi/surrealdb.java/client"
)

// Category tells the host which family of exception to raise.
type Category uint8

const (
	// CategoryClient covers failures reported by the database client:
	// connection, authentication, parse and query errors.
	CategoryClient Category = iota + 1
	// CategoryMarshal covers bad host input: invalid UTF-8, unknown handles,
	// malformed resources, unexpected result shapes.
	CategoryMarshal
	// CategoryBridge covers violated bridge invariants: stale handles, kind
	// mismatches, missing statement indexes, re-entrant blocking.
	CategoryBridge
)

func (c Category) String() string {
	switch c {
	case CategoryClient:
		return "client"
	case CategoryMarshal:
		return "marshal"
	case CategoryBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// define all package level errors here
var (
	ErrInvalidHandle  = errors.New("surreal: invalid handle")
	ErrStaleHandle    = errors.New("surreal: handle already released")
	ErrHandleKind     = errors.New("surreal: handle refers to another kind of object")
	ErrInvalidUTF8    = errors.New("surreal: string is not valid UTF-8")
	ErrReentrantBlock = errors.New("surreal: blocking call made from inside the runtime")
	ErrRuntimeClosed  = errors.New("surreal: runtime is shut down")
	ErrMissingResult  = errors.New("surreal: statement result missing")
	ErrResultShape    = errors.New("surreal: unexpected result shape")
	ErrBadResource    = errors.New("surreal: invalid resource")
	ErrNotThing       = errors.New("surreal: value is not a record id")
	ErrArgCount       = errors.New("surreal: argument count mismatch")
	ErrArgLength      = errors.New("surreal: argument length out of range")
	ErrPanic          = errors.New("surreal: panic in bridge task")
	ErrElementIndex   = errors.New("surreal: array index out of range")
)

// Error is the single error type surfaced to the host.
type Error struct {
	Category Category
	// Op is the entry point that failed, e.g. "query".
	Op     string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.Category.String())
	b.WriteString("] ")
	b.WriteString(e.Op)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Category == e.Category
}

// Category sentinels for errors.Is.
var (
	ClientError  = &Error{Category: CategoryClient}
	MarshalError = &Error{Category: CategoryMarshal}
	BridgeError  = &Error{Category: CategoryBridge}
)

// translate converts any failure of an entry point into an *Error. Errors
// that already carry a category keep it.
func translate(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		if be.Op == "" {
			out := *be
			out.Op = op
			return &out
		}
		return be
	}
	return &Error{Category: categorize(err), Op: op, Detail: detail(err), Cause: err}
}

func categorize(err error) Category {
	var ce *client.Error
	switch {
	case errors.As(err, &ce):
		return CategoryClient
	case errors.Is(err, ErrInvalidUTF8),
		errors.Is(err, ErrInvalidHandle),
		errors.Is(err, ErrResultShape),
		errors.Is(err, ErrBadResource),
		errors.Is(err, ErrNotThing),
		errors.Is(err, ErrArgCount),
		errors.Is(err, ErrArgLength):
		return CategoryMarshal
	case errors.Is(err, ErrStaleHandle),
		errors.Is(err, ErrHandleKind),
		errors.Is(err, ErrMissingResult),
		errors.Is(err, ErrElementIndex),
		errors.Is(err, ErrReentrantBlock),
		errors.Is(err, ErrRuntimeClosed),
		errors.Is(err, ErrPanic),
		errors.Is(err, client.ErrIndexOutOfRange):
		return CategoryBridge
	default:
		// anything else comes out of the client stack
		return CategoryClient
	}
}

func detail(err error) string {
	var ce *client.Error
	if errors.As(err, &ce) {
		return ce.Kind.String() + " error"
	}
	return ""
}

func marshalErr(op string, cause error) *Error {
	return &Error{Category: CategoryMarshal, Op: op, Cause: cause}
}

func bridgeErr(op string, cause error) *Error {
	return &Error{Category: CategoryBridge, Op: op, Cause: cause}
}
