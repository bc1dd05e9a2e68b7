package surreal

import (
	"sync"
	"testing"

	"github.com/harry-xi/surrealdb.java/client"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerDefaultsToNop(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })
	SetLogger(nil)
	require.NotNil(t, Logger())
	Logger().Info("discarded")
}

func TestSetLoggerConcurrent(t *testing.T) {
	t.Cleanup(func() {
		SetLogger(nil)
		client.SetLogger(nil)
	})
	core, logs := observer.New(zap.DebugLevel)
	l := zap.New(core)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b := NewBridge(Config{Workers: 1, Logger: l, Signaler: &RecordingSignaler{}})
			_ = b.Close()
		}()
		go func() {
			defer wg.Done()
			Logger().Debug("concurrent")
			client.Logger().Debug("concurrent")
		}()
	}
	wg.Wait()

	require.Same(t, l, Logger())
	require.Same(t, l, client.Logger())
	require.NotZero(t, logs.FilterMessage("runtime started").Len())
}
