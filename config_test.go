package surreal

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvWorkers, "")
	t.Setenv(EnvLogLevel, "")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	require.Zero(t, cfg.Workers)
	require.Nil(t, cfg.Logger)

	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvLogLevel, "warn")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Workers)
	require.NotNil(t, cfg.Logger)
	require.False(t, cfg.Logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, cfg.Logger.Core().Enabled(zapcore.WarnLevel))

	t.Setenv(EnvLogLevel, "debug")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	require.True(t, cfg.Logger.Core().Enabled(zapcore.DebugLevel))
}

func TestConfigFromEnvErrors(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	for _, bad := range []string{"many", "-1"} {
		t.Setenv(EnvWorkers, bad)
		_, err := ConfigFromEnv()
		require.ErrorContains(t, err, EnvWorkers)
	}

	t.Setenv(EnvWorkers, "")
	t.Setenv(EnvLogLevel, "loud")
	_, err := ConfigFromEnv()
	require.ErrorContains(t, err, EnvLogLevel)
}
