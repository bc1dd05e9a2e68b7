package client

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetLoggerConcurrent(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })
	l := zap.NewExample()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetLogger(l)
		}()
		go func() {
			defer wg.Done()
			require.NotNil(t, Logger())
		}()
	}
	wg.Wait()
	require.Same(t, l, Logger())

	SetLogger(nil)
	require.NotSame(t, l, Logger())
}
