package main

import (
	"testing"
	"unsafe"

	surreal "github.com/harry-xi/surrealdb.java"
	"github.com/stretchr/testify/require"
)

func TestArgsBytes(t *testing.T) {
	src := []byte("héllo")
	tests := []struct {
		name string
		p    unsafe.Pointer
		n    uintptr
		want []byte
		err  error
	}{
		{name: "null", p: nil, n: 5, want: []byte{}},
		{name: "empty", p: unsafe.Pointer(&src[0]), n: 0, want: []byte{}},
		{name: "prefix", p: unsafe.Pointer(&src[0]), n: 1, want: []byte("h")},
		{name: "all", p: unsafe.Pointer(&src[0]), n: uintptr(len(src)), want: []byte("héllo")},
		{name: "too long", p: unsafe.Pointer(&src[0]), n: ^uintptr(0), err: surreal.ErrArgLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a args
			got := a.bytes(tt.p, tt.n)
			if tt.err != nil {
				require.ErrorIs(t, a.err, tt.err)
				return
			}
			require.NoError(t, a.err)
			require.Equal(t, tt.want, got)
		})
	}

	// the result does not alias host memory
	var a args
	got := a.bytes(unsafe.Pointer(&src[0]), 1)
	src[0] = 'j'
	require.Equal(t, []byte("h"), got)
}

func TestArgsHandles(t *testing.T) {
	src := []uint64{7, 1 << 40, 3}
	tests := []struct {
		name string
		p    unsafe.Pointer
		n    uintptr
		want []surreal.Handle
		err  error
	}{
		{name: "null with count", p: nil, n: 2, want: []surreal.Handle{0, 0}},
		{name: "empty", p: unsafe.Pointer(&src[0]), n: 0, want: []surreal.Handle{}},
		{name: "copied", p: unsafe.Pointer(&src[0]), n: 3, want: []surreal.Handle{7, 1 << 40, 3}},
		{name: "too many", p: nil, n: ^uintptr(0), err: surreal.ErrArgLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a args
			got := a.handles(tt.p, tt.n)
			if tt.err != nil {
				require.ErrorIs(t, a.err, tt.err)
				return
			}
			require.NoError(t, a.err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestArgsNames(t *testing.T) {
	a1, a2 := []byte("name"), []byte("age")
	ptrs := []unsafe.Pointer{unsafe.Pointer(&a1[0]), unsafe.Pointer(&a2[0])}
	lens := []uintptr{uintptr(len(a1)), uintptr(len(a2))}
	names, ls := unsafe.Pointer(&ptrs[0]), unsafe.Pointer(&lens[0])

	tests := []struct {
		name  string
		names unsafe.Pointer
		lens  unsafe.Pointer
		n     uintptr
		want  [][]byte
		err   error
	}{
		{name: "none", n: 0, want: [][]byte{}},
		{name: "pairs", names: names, lens: ls, n: 2, want: [][]byte{[]byte("name"), []byte("age")}},
		{name: "null names", lens: ls, n: 2, err: surreal.ErrArgCount},
		{name: "null lengths", names: names, n: 1, err: surreal.ErrArgCount},
		{name: "too many", names: names, lens: ls, n: ^uintptr(0), err: surreal.ErrArgLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a args
			got := a.names(tt.names, tt.lens, tt.n)
			if tt.err != nil {
				require.ErrorIs(t, a.err, tt.err)
				return
			}
			require.NoError(t, a.err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCopyHandles(t *testing.T) {
	var allocated []uintptr
	var buf []uint64
	alloc := func(size uintptr) unsafe.Pointer {
		allocated = append(allocated, size)
		buf = make([]uint64, size/handleSize)
		return unsafe.Pointer(&buf[0])
	}

	p, n := copyHandles(nil, alloc)
	require.Nil(t, p)
	require.Zero(t, n)
	p, n = copyHandles([]surreal.Handle{}, alloc)
	require.Nil(t, p)
	require.Zero(t, n)
	require.Empty(t, allocated)

	p, n = copyHandles([]surreal.Handle{5, 9}, alloc)
	require.Equal(t, uintptr(2), n)
	require.Equal(t, []uintptr{2 * handleSize}, allocated)
	require.Equal(t, unsafe.Pointer(&buf[0]), p)
	require.Equal(t, []uint64{5, 9}, buf)
}

func TestArgsFailed(t *testing.T) {
	sig := &surreal.RecordingSignaler{}
	b := surreal.NewBridge(surreal.Config{Workers: 1, Signaler: sig})
	t.Cleanup(func() { _ = b.Close() })

	var ok args
	ok.bytes(nil, 0)
	require.False(t, ok.failed(b, "query"))
	require.Zero(t, sig.Count())

	// parameter values without names
	var a args
	a.names(nil, nil, 1)
	a.bytes(unsafe.Pointer(&[]byte("x")[0]), ^uintptr(0))
	require.True(t, a.failed(b, "query"))
	e := sig.Last()
	require.ErrorIs(t, e, surreal.MarshalError)
	require.ErrorIs(t, e, surreal.ErrArgCount)
	require.Equal(t, "query", e.Op)
	require.Equal(t, 1, sig.Count())
}
