package surreal

import (
	"io"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Handle is an opaque reference to an object owned by the bridge. The low 32
// bits are the slot index plus one, the high 32 bits the slot generation, so
// 0 is never a valid handle and a released handle is never reissued.
type Handle uint64

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) index() (uint32, bool) {
	low := uint32(h)
	if low == 0 {
		return 0, false
	}
	return low - 1, true
}

func (h Handle) generation() uint32 { return uint32(h >> 32) }

// Kind is the family of object a handle refers to.
type Kind uint8

const (
	KindConnection Kind = iota + 1
	KindValue
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindValue:
		return "value"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

type slot struct {
	mu   sync.RWMutex
	gen  uint32
	kind Kind
	// obj is nil while the slot is free
	obj any
}

// Registry maps handles to live objects. Each slot has its own lock: borrows
// take it shared, Release takes it exclusively. The registry lock only
// guards slot allocation.
type Registry struct {
	mu     sync.Mutex
	slots  []*slot
	free   []uint32
	live   int
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create stores obj and returns its handle. It returns 0 once the registry
// is closed.
func (r *Registry) Create(kind Kind, obj any) Handle {
	if obj == nil {
		return 0
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	var idx uint32
	var s *slot
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		s = r.slots[idx]
	} else {
		idx = uint32(len(r.slots))
		s = &slot{}
		r.slots = append(r.slots, s)
	}
	r.live++
	r.mu.Unlock()

	s.mu.Lock()
	s.kind = kind
	s.obj = obj
	h := makeHandle(idx, s.gen)
	s.mu.Unlock()

	Logger().Debug("handle created", zap.Uint64("handle", uint64(h)), zap.Stringer("kind", kind))
	return h
}

func (r *Registry) slotOf(h Handle) (*slot, uint32, error) {
	idx, ok := h.index()
	if !ok {
		return nil, 0, ErrInvalidHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(idx) >= len(r.slots) {
		return nil, 0, ErrInvalidHandle
	}
	return r.slots[idx], idx, nil
}

// check validates a locked slot against the handle that named it.
func (s *slot) check(h Handle, kind Kind) error {
	switch gen := h.generation(); {
	case gen > s.gen:
		return ErrInvalidHandle
	case gen < s.gen || s.obj == nil:
		return ErrStaleHandle
	case s.kind != kind:
		return ErrHandleKind
	}
	return nil
}

// Ref names a handle together with the kind the caller expects.
type Ref struct {
	Handle Handle
	Kind   Kind
}

// Lease holds shared access to borrowed objects until Release.
type Lease struct {
	objs  map[Handle]any
	slots []*slot
}

// Get returns the object borrowed for h, or nil if h is not part of the lease.
func (l *Lease) Get(h Handle) any {
	return l.objs[h]
}

// Release drops shared access. It is safe to call more than once.
func (l *Lease) Release() {
	for i := len(l.slots) - 1; i >= 0; i-- {
		l.slots[i].mu.RUnlock()
	}
	l.slots = nil
}

// Borrow resolves every ref with shared access held until the lease is
// released. Each slot is locked once, in ascending slot order. If any ref
// does not resolve nothing stays locked.
func (r *Registry) Borrow(refs ...Ref) (*Lease, error) {
	sorted := make([]Ref, len(refs))
	copy(sorted, refs)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Handle, sorted[j].Handle
		if uint32(a) != uint32(b) {
			return uint32(a) < uint32(b)
		}
		return a < b
	})

	l := &Lease{objs: make(map[Handle]any, len(sorted))}
	var last *slot
	for _, ref := range sorted {
		s, _, err := r.slotOf(ref.Handle)
		if err != nil {
			l.Release()
			return nil, err
		}
		// refs naming the same slot are adjacent after sorting
		if s != last {
			s.mu.RLock()
			l.slots = append(l.slots, s)
			last = s
		}
		if err := s.check(ref.Handle, ref.Kind); err != nil {
			l.Release()
			return nil, err
		}
		l.objs[ref.Handle] = s.obj
	}
	return l, nil
}

// Release removes the object behind h, closing it when it is an io.Closer.
// Waits for outstanding borrows of h to finish.
func (r *Registry) Release(h Handle, kind Kind) error {
	s, idx, err := r.slotOf(h)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.check(h, kind); err != nil {
		s.mu.Unlock()
		return err
	}
	obj := s.obj
	s.obj = nil
	s.kind = 0
	retired := s.gen == math.MaxUint32
	if !retired {
		s.gen++
	}
	s.mu.Unlock()

	r.mu.Lock()
	r.live--
	if !retired {
		r.free = append(r.free, idx)
	}
	r.mu.Unlock()

	closeObject(h, obj)
	Logger().Debug("handle released", zap.Uint64("handle", uint64(h)), zap.Stringer("kind", kind))
	return nil
}

func closeObject(h Handle, obj any) {
	if c, ok := obj.(io.Closer); ok {
		if err := c.Close(); err != nil {
			Logger().Warn("failed to close released object", zap.Uint64("handle", uint64(h)), zap.Error(err))
		}
	}
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Close releases every live object and stops issuing handles.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	slots := r.slots
	r.mu.Unlock()

	for idx, s := range slots {
		s.mu.Lock()
		obj := s.obj
		h := makeHandle(uint32(idx), s.gen)
		if obj != nil {
			s.obj = nil
			s.kind = 0
			if s.gen != math.MaxUint32 {
				s.gen++
			}
		}
		s.mu.Unlock()
		if obj != nil {
			closeObject(h, obj)
		}
	}
	r.mu.Lock()
	r.live = 0
	r.free = nil
	r.mu.Unlock()
	return nil
}
