package surreal

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nop    = zap.NewNop()
)

// Logger returns the bridge's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nop
}

// SetLogger configures the bridge's logger. Passing nil restores the
// no-op logger. It is safe to call while other goroutines log.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
