package surreal

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"
)

// Signaler raises bridge errors in the host: every failed entry point calls
// Raise once, on the calling thread, before returning its sentinel.
type Signaler interface {
	Raise(err *Error)
}

// LogSignaler logs raised errors. It is the default signaler.
type LogSignaler struct {
	Logger *zap.Logger
}

func (s LogSignaler) Raise(err *Error) {
	l := s.Logger
	if l == nil {
		l = Logger()
	}
	l.Warn("bridge call failed",
		zap.Stringer("category", err.Category),
		zap.String("op", err.Op),
		zap.Error(err))
}

// RecordingSignaler keeps the most recent error for hosts that poll.
type RecordingSignaler struct {
	mu    sync.Mutex
	last  *Error
	count int
}

func (s *RecordingSignaler) Raise(err *Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = err
	s.count++
}

// Last returns the most recent error without clearing it.
func (s *RecordingSignaler) Last() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Take returns the most recent error and clears it.
func (s *RecordingSignaler) Take() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.last
	s.last = nil
	return err
}

// Count returns how many errors were raised so far.
func (s *RecordingSignaler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// CallbackSignaler forwards raised errors to a host C function with the
// signature
//
//	void on_error(int32_t category, const char *op, const char *message);
//
// Both strings are only valid for the duration of the call; op may be NULL.
type CallbackSignaler struct {
	fn func(category uintptr, op unsafe.Pointer, msg unsafe.Pointer)
}

// NewCallbackSignaler wraps the C function pointer fnPtr.
func NewCallbackSignaler(fnPtr uintptr) (*CallbackSignaler, error) {
	if fnPtr == 0 {
		return nil, errors.New("surreal: nil error callback")
	}
	s := &CallbackSignaler{}
	purego.RegisterFunc(&s.fn, fnPtr)
	return s, nil
}

func (s *CallbackSignaler) Raise(err *Error) {
	op, keepOp := cStringPtr(err.Op)
	msg, keepMsg := cStringPtr(err.Error())
	s.fn(uintptr(err.Category), op, msg)
	keepOp()
	keepMsg()
}

func cStringPtr(s string) (ptr unsafe.Pointer, keepAlive func()) {
	// Allocate Go memory with null terminator; valid during the call
	if len(s) == 0 {
		return nil, func() {}
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return unsafe.Pointer(&b[0]), func() { runtime.KeepAlive(b) }
}
