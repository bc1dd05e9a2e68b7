package surreal

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvWorkers  = "SURREAL_BRIDGE_WORKERS"
	EnvLogLevel = "SURREAL_LOG"
)

// ConfigFromEnv builds a Config from the process environment.
// SURREAL_BRIDGE_WORKERS sets the runtime pool size. SURREAL_LOG picks a
// logger: "debug" installs a development logger, any other zap level a
// production logger at that level. Unset variables keep the defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if s := os.Getenv(EnvWorkers); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("%s=%q: expected a non-negative integer", EnvWorkers, s)
		}
		cfg.Workers = n
	}
	if s := os.Getenv(EnvLogLevel); s != "" {
		l, err := newLogger(s)
		if err != nil {
			return cfg, fmt.Errorf("%s=%q: %w", EnvLogLevel, s, err)
		}
		cfg.Logger = l
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}
