package surreal

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// inRuntimeKey marks contexts handed to tasks running on a Runtime.
type inRuntimeKey struct{}

// Runtime is a fixed pool of worker goroutines that runs the asynchronous
// side of every bridge call. Host threads park in Block until their task
// resolves.
type Runtime struct {
	tasks   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	workers int
}

// NewRuntime starts a runtime with the given number of workers, or
// GOMAXPROCS workers when n <= 0.
func NewRuntime(n int) *Runtime {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	rt := &Runtime{
		tasks:   make(chan func()),
		workers: n,
	}
	rt.wg.Add(n)
	for i := 0; i < n; i++ {
		go rt.work()
	}
	Logger().Debug("runtime started", zap.Int("workers", n))
	return rt
}

func (rt *Runtime) work() {
	defer rt.wg.Done()
	for fn := range rt.tasks {
		fn()
	}
}

// Workers returns the size of the worker pool.
func (rt *Runtime) Workers() int { return rt.workers }

func (rt *Runtime) submit(fn func()) error {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.closed {
		return ErrRuntimeClosed
	}
	rt.tasks <- fn
	return nil
}

// Close stops accepting work and waits for running tasks to finish.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	close(rt.tasks)
	rt.mu.Unlock()
	rt.wg.Wait()
	Logger().Debug("runtime stopped")
}

// InRuntime reports whether ctx belongs to a task running on a runtime.
func InRuntime(ctx context.Context) bool {
	return ctx != nil && ctx.Value(inRuntimeKey{}) != nil
}

// Block runs fn on rt and waits for its result. Calling Block with a context
// that already belongs to a runtime task fails with ErrReentrantBlock; a
// panic in fn is returned as ErrPanic.
func Block[T any](ctx context.Context, rt *Runtime, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	if InRuntime(ctx) {
		return zero, ErrReentrantBlock
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	taskCtx := context.WithValue(ctx, inRuntimeKey{}, rt)
	err := rt.submit(func() {
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("panic in bridge task", zap.Any("panic", r), zap.Stack("stack"))
				done <- result{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		v, err := fn(taskCtx)
		done <- result{v: v, err: err}
	})
	if err != nil {
		return zero, err
	}
	res := <-done
	return res.v, res.err
}
