package surreal

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	closed atomic.Int32
}

func (c *closeCounter) Close() error {
	c.closed.Add(1)
	return nil
}

func TestRegistryCreateBorrowRelease(t *testing.T) {
	r := NewRegistry()
	obj := &closeCounter{}
	h := r.Create(KindConnection, obj)
	require.NotZero(t, h)
	require.Equal(t, 1, r.Len())

	l, err := r.Borrow(Ref{Handle: h, Kind: KindConnection})
	require.NoError(t, err)
	require.Same(t, obj, l.Get(h))
	l.Release()
	l.Release()

	require.NoError(t, r.Release(h, KindConnection))
	require.Equal(t, int32(1), obj.closed.Load())
	require.Equal(t, 0, r.Len())

	_, err = r.Borrow(Ref{Handle: h, Kind: KindConnection})
	require.ErrorIs(t, err, ErrStaleHandle)
	require.ErrorIs(t, r.Release(h, KindConnection), ErrStaleHandle)
	require.Equal(t, int32(1), obj.closed.Load())
}

func TestRegistryInvalidHandles(t *testing.T) {
	r := NewRegistry()
	h := r.Create(KindValue, "v")

	_, err := r.Borrow(Ref{Handle: 0, Kind: KindValue})
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = r.Borrow(Ref{Handle: 999, Kind: KindValue})
	require.ErrorIs(t, err, ErrInvalidHandle)
	// right slot, generation never issued
	_, err = r.Borrow(Ref{Handle: h + 1<<32, Kind: KindValue})
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = r.Borrow(Ref{Handle: h, Kind: KindResponse})
	require.ErrorIs(t, err, ErrHandleKind)
	require.ErrorIs(t, r.Release(h, KindConnection), ErrHandleKind)
	require.Zero(t, r.Create(KindValue, nil))

	// a failed multi borrow leaves nothing locked
	_, err = r.Borrow(Ref{Handle: h, Kind: KindValue}, Ref{Handle: 12345, Kind: KindValue})
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.NoError(t, r.Release(h, KindValue))
}

func TestRegistryHandlesAreNeverReused(t *testing.T) {
	r := NewRegistry()
	seen := map[Handle]bool{}
	var live []Handle
	for round := 0; round < 50; round++ {
		for i := 0; i < 10; i++ {
			h := r.Create(KindValue, i)
			require.NotZero(t, h)
			require.False(t, seen[h], "handle %d issued twice", h)
			seen[h] = true
			live = append(live, h)
		}
		// release every other live handle so slots are recycled
		var keep []Handle
		for i, h := range live {
			if i%2 == 0 {
				require.NoError(t, r.Release(h, KindValue))
				continue
			}
			keep = append(keep, h)
		}
		live = keep
	}
	require.Equal(t, len(live), r.Len())
	for h := range seen {
		_, err := r.Borrow(Ref{Handle: h, Kind: KindValue})
		isLive := false
		for _, l := range live {
			isLive = isLive || l == h
		}
		if isLive {
			require.NoError(t, err)
		} else {
			require.Error(t, err)
		}
	}
}

func TestRegistryRetiresExhaustedSlots(t *testing.T) {
	r := NewRegistry()
	require.NotZero(t, r.Create(KindValue, 1))
	r.slots[0].gen = math.MaxUint32
	h := makeHandle(0, math.MaxUint32)
	require.NoError(t, r.Release(h, KindValue))

	next := r.Create(KindValue, 2)
	idx, _ := next.index()
	require.Equal(t, uint32(1), idx)
	_, err := r.Borrow(Ref{Handle: h, Kind: KindValue})
	require.ErrorIs(t, err, ErrStaleHandle)
}

func TestRegistryBorrowDuplicates(t *testing.T) {
	r := NewRegistry()
	a := r.Create(KindValue, "a")
	b := r.Create(KindValue, "b")
	l, err := r.Borrow(
		Ref{Handle: b, Kind: KindValue},
		Ref{Handle: a, Kind: KindValue},
		Ref{Handle: b, Kind: KindValue},
	)
	require.NoError(t, err)
	require.Equal(t, "a", l.Get(a))
	require.Equal(t, "b", l.Get(b))
	require.Len(t, l.slots, 2)
	l.Release()
	require.NoError(t, r.Release(b, KindValue))
}

func TestRegistryReleaseWaitsForBorrow(t *testing.T) {
	r := NewRegistry()
	obj := &closeCounter{}
	h := r.Create(KindConnection, obj)
	l, err := r.Borrow(Ref{Handle: h, Kind: KindConnection})
	require.NoError(t, err)

	released := make(chan error, 1)
	go func() { released <- r.Release(h, KindConnection) }()

	select {
	case <-released:
		t.Fatal("release finished while the handle was borrowed")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, int32(0), obj.closed.Load())
	l.Release()
	require.NoError(t, <-released)
	require.Equal(t, int32(1), obj.closed.Load())
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()
	const workers = 16
	const perWorker = 200

	var mu sync.Mutex
	seen := map[Handle]bool{}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				h := r.Create(KindValue, w*perWorker+i)
				if h == 0 {
					t.Error("zero handle")
					return
				}
				mu.Lock()
				dup := seen[h]
				seen[h] = true
				mu.Unlock()
				if dup {
					t.Errorf("duplicate handle %d", h)
					return
				}
				l, err := r.Borrow(Ref{Handle: h, Kind: KindValue})
				if err != nil {
					t.Error(err)
					return
				}
				if l.Get(h) != w*perWorker+i {
					t.Errorf("handle %d resolved to %v", h, l.Get(h))
				}
				l.Release()
				if i%3 == 0 {
					if err := r.Release(h, KindValue); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	require.Len(t, seen, workers*perWorker)
}

// Two callers borrowing the same pair in opposite order while a third
// releases one of them must not deadlock.
func TestRegistryBorrowOrderIsDeadlockFree(t *testing.T) {
	r := NewRegistry()
	a := r.Create(KindValue, "a")
	b := r.Create(KindValue, "b")

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 500; n++ {
				refs := []Ref{{Handle: a, Kind: KindValue}, {Handle: b, Kind: KindValue}}
				if i == 1 {
					refs[0], refs[1] = refs[1], refs[0]
				}
				l, err := r.Borrow(refs...)
				if err != nil {
					return
				}
				l.Release()
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	time.Sleep(time.Millisecond)
	require.NoError(t, r.Release(b, KindValue))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("borrowers deadlocked")
	}
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	objs := []*closeCounter{{}, {}, {}}
	var hs []Handle
	for _, o := range objs {
		hs = append(hs, r.Create(KindConnection, o))
	}
	require.NoError(t, r.Release(hs[1], KindConnection))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	for _, o := range objs {
		require.Equal(t, int32(1), o.closed.Load())
	}
	require.Zero(t, r.Create(KindValue, 1))
	require.Equal(t, 0, r.Len())
	_, err := r.Borrow(Ref{Handle: hs[0], Kind: KindConnection})
	require.ErrorIs(t, err, ErrStaleHandle)
}
