package main

import (
	"fmt"
	"math"
	"unsafe"

	surreal "github.com/harry-xi/surrealdb.java"
)

// Host arguments arrive as raw pointers and size_t lengths. These helpers
// copy them into Go values without cgo so they can be tested directly.

const handleSize = unsafe.Sizeof(uint64(0))

// args decodes the arguments of one call and keeps the first failure.
type args struct {
	err error
}

func (a *args) keep(err error) {
	if a.err == nil {
		a.err = err
	}
}

// failed raises a decoding failure on b as op and reports whether there was
// one.
func (a *args) failed(b *surreal.Bridge, op string) bool {
	if a.err == nil {
		return false
	}
	_ = b.Raise(op, a.err)
	return true
}

// bytes copies n bytes at p. NULL reads as empty.
func (a *args) bytes(p unsafe.Pointer, n uintptr) []byte {
	if p == nil || n == 0 {
		return []byte{}
	}
	if n > math.MaxInt {
		a.keep(fmt.Errorf("%w: %d bytes", surreal.ErrArgLength, uint64(n)))
		return nil
	}
	return append([]byte(nil), unsafe.Slice((*byte)(p), int(n))...)
}

// handles copies n handles at p. NULL yields n zero handles, which the
// bridge rejects as invalid.
func (a *args) handles(p unsafe.Pointer, n uintptr) []surreal.Handle {
	if n > math.MaxInt/handleSize {
		a.keep(fmt.Errorf("%w: %d handles", surreal.ErrArgLength, uint64(n)))
		return nil
	}
	out := make([]surreal.Handle, int(n))
	if p == nil {
		return out
	}
	for i, h := range unsafe.Slice((*uint64)(p), int(n)) {
		out[i] = surreal.Handle(h)
	}
	return out
}

// names copies n strings given as parallel pointer and length arrays.
// Both arrays are required when n is not zero.
func (a *args) names(names, lens unsafe.Pointer, n uintptr) [][]byte {
	if n == 0 {
		return [][]byte{}
	}
	if names == nil || lens == nil {
		a.keep(fmt.Errorf("%w: %d values without parameter names", surreal.ErrArgCount, uint64(n)))
		return nil
	}
	if n > math.MaxInt/unsafe.Sizeof(uintptr(0)) {
		a.keep(fmt.Errorf("%w: %d names", surreal.ErrArgLength, uint64(n)))
		return nil
	}
	ps := unsafe.Slice((*unsafe.Pointer)(names), int(n))
	ls := unsafe.Slice((*uintptr)(lens), int(n))
	out := make([][]byte, int(n))
	for i := range out {
		out[i] = a.bytes(ps[i], ls[i])
	}
	return out
}

// copyHandles writes hs to memory from alloc and returns it with its
// length. An empty result is NULL with length 0 and allocates nothing.
func copyHandles(hs []surreal.Handle, alloc func(size uintptr) unsafe.Pointer) (unsafe.Pointer, uintptr) {
	if len(hs) == 0 {
		return nil, 0
	}
	p := alloc(uintptr(len(hs)) * handleSize)
	dst := unsafe.Slice((*uint64)(p), len(hs))
	for i, h := range hs {
		dst[i] = uint64(h)
	}
	return p, uintptr(len(hs))
}

func main() {
}
