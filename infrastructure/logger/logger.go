package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Config defines logger configuration
type Config struct {
	Environment string // "development", "testing", "production"
	Level       string // "debug", "info", "warn", "error"
	Format      string // "json" or "console"; empty picks by environment
	Service     string
	// File logging configuration (production only; empty Filename logs to stderr)
	Filename   string
	MaxSize    int  // megabytes
	MaxBackups int  // rotated files kept
	MaxAge     int  // days
	Compress   bool // gzip rotated files
}

// DefaultConfig returns default logger configuration based on environment
func DefaultConfig(env string) *Config {
	switch env {
	case "production", "prod":
		return &Config{
			Environment: "production",
			Level:       "info",
			Format:      "json",
			Service:     "todoflow",
			Filename:    "logs/todoflow.log",
			MaxSize:     200,
			MaxBackups:  10,
			MaxAge:      30,
			Compress:    true,
		}
	case "testing", "test":
		return &Config{
			Environment: "testing",
			Level:       "debug",
			Service:     "todoflow",
		}
	default:
		return &Config{
			Environment: "development",
			Level:       "debug",
			Service:     "todoflow",
		}
	}
}

// Init initializes the global logger; only the first call has effect
func Init(cfg *Config) error {
	var err error
	once.Do(func() {
		err = initLogger(cfg)
	})
	return err
}

// InitFromEnv initializes the global logger from TODOFLOW_ENV, LOG_LEVEL
// and LOG_FILE
func InitFromEnv() error {
	env := os.Getenv("TODOFLOW_ENV")
	if env == "" {
		env = "development"
	}
	cfg := DefaultConfig(env)

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Level = logLevel
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Filename = logFile
	}

	return Init(cfg)
}

func initLogger(cfg *Config) error {
	level := parseLogLevel(cfg.Level)

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "production" || cfg.Format == "json" {
		logger, err = newJSONLogger(cfg, level)
	} else {
		logger, err = newConsoleLogger(level)
	}
	if err != nil {
		return err
	}

	globalLogger = logger
	zap.ReplaceGlobals(logger)
	return nil
}

// newJSONLogger writes JSON lines, rotated by lumberjack when a file is set
func newJSONLogger(cfg *Config, level zapcore.Level) (*zap.Logger, error) {
	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if cfg.Filename != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, level)

	service := cfg.Service
	if service == "" {
		service = "todoflow"
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("environment", cfg.Environment),
			zap.String("service", service),
		),
	), nil
}

// newConsoleLogger creates a development logger with colored console output
func newConsoleLogger(level zapcore.Level) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	config.Level = zap.NewAtomicLevelAt(level)

	return config.Build()
}

// parseLogLevel converts string log level to zapcore.Level
func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the global logger, or a no-op logger before Init
func Get() *zap.Logger {
	if globalLogger != nil {
		return globalLogger
	}
	return zap.NewNop()
}

// Named returns a named child of the global logger
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

// With returns a child of the global logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// Info logs a message at info level
func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

// Warn logs a message at warn level
func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

// Error logs a message at error level
func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}
