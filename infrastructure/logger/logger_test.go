package logger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func reset() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
	globalLogger = nil
	once = sync.Once{}
}

func TestLoggerInitialization(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
	}{
		{"Development environment", "development", "debug"},
		{"Testing environment", "testing", "debug"},
		{"Production environment", "production", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer reset()
			cfg := &Config{
				Environment: tt.environment,
				Level:       tt.level,
				Filename:    filepath.Join(t.TempDir(), "test.log"),
				MaxSize:     1,
				MaxBackups:  1,
				MaxAge:      1,
			}

			require.NoError(t, Init(cfg))

			Info("Info message", zap.String("test", "value"))
			Warn("Warning message", zap.String("test", "value"))
			Error("Error message", zap.String("test", "value"))
			assert.NotNil(t, Get())
		})
	}
}

func TestJSONLoggerWritesToFile(t *testing.T) {
	defer reset()
	path := filepath.Join(t.TempDir(), "todoflow.log")

	cfg := DefaultConfig("production")
	cfg.Filename = path
	require.NoError(t, Init(cfg))

	Named("gateway").Info("Mutation finished", zap.String("op", "add"))
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Mutation finished"`)
	assert.Contains(t, string(data), `"logger":"gateway"`)
	assert.Contains(t, string(data), `"service":"todoflow"`)
}

func TestInitOnlyOnce(t *testing.T) {
	defer reset()

	require.NoError(t, Init(DefaultConfig("testing")))
	first := Get()
	require.NoError(t, Init(DefaultConfig("production")))
	assert.Same(t, first, Get())
}

func TestGetBeforeInit(t *testing.T) {
	reset()
	assert.NotPanics(t, func() {
		Get().Info("dropped")
		With(zap.String("k", "v")).Warn("dropped")
	})
	assert.NoError(t, Sync())
}

func TestInitFromEnv(t *testing.T) {
	defer reset()
	t.Setenv("TODOFLOW_ENV", "testing")
	t.Setenv("LOG_LEVEL", "warn")

	require.NoError(t, InitFromEnv())
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestDefaultConfig(t *testing.T) {
	prod := DefaultConfig("prod")
	assert.Equal(t, "production", prod.Environment)
	assert.Equal(t, "json", prod.Format)
	assert.True(t, prod.Compress)

	dev := DefaultConfig("")
	assert.Equal(t, "development", dev.Environment)
	assert.Empty(t, dev.Filename)
}
