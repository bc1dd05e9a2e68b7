package surreal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockReturnsResult(t *testing.T) {
	rt := NewRuntime(2)
	t.Cleanup(rt.Close)
	require.Equal(t, 2, rt.Workers())

	v, err := Block(context.Background(), rt, func(ctx context.Context) (int, error) {
		require.True(t, InRuntime(ctx))
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Block(nil, rt, func(context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, InRuntime(context.Background()))
}

func TestBlockRejectsReentrance(t *testing.T) {
	rt := NewRuntime(1)
	t.Cleanup(rt.Close)

	// with a single worker a nested Block would otherwise hang forever
	inner, err := Block(context.Background(), rt, func(ctx context.Context) (error, error) {
		_, err := Block(ctx, rt, func(context.Context) (int, error) { return 1, nil })
		return err, nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, inner, ErrReentrantBlock)
	require.Equal(t, CategoryBridge, translate("query", inner).Category)
}

func TestBlockRecoversPanics(t *testing.T) {
	rt := NewRuntime(1)
	t.Cleanup(rt.Close)

	_, err := Block(context.Background(), rt, func(context.Context) (int, error) {
		panic("kaboom")
	})
	require.ErrorIs(t, err, ErrPanic)
	require.Contains(t, err.Error(), "kaboom")

	// the worker survives the panic
	v, err := Block(context.Background(), rt, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestBlockAfterClose(t *testing.T) {
	rt := NewRuntime(1)
	rt.Close()
	rt.Close()
	_, err := Block(context.Background(), rt, func(context.Context) (int, error) { return 1, nil })
	require.ErrorIs(t, err, ErrRuntimeClosed)
}

func TestBlockConcurrentCallers(t *testing.T) {
	rt := NewRuntime(4)
	t.Cleanup(rt.Close)

	var sum atomic.Int64
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Block(context.Background(), rt, func(context.Context) (int, error) { return i, nil })
			if err != nil {
				t.Error(err)
				return
			}
			sum.Add(int64(v))
		}(i)
	}
	wg.Wait()
	require.Equal(t, int64(5050), sum.Load())
}

func TestNewRuntimeDefaultsWorkers(t *testing.T) {
	rt := NewRuntime(0)
	t.Cleanup(rt.Close)
	require.Positive(t, rt.Workers())
}
