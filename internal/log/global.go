package log

import "context"

// global is the process-wide logger. Replaced once at startup by Setup;
// defaults to an info-level JSON logger so early code paths can log.
var global = New(Config{Name: "inkhub", Level: "info"})

// Setup replaces the global logger from config and installs the default
// context hook. Call once during process startup.
func Setup(cfg Config) *Logger {
	logger := New(cfg)
	logger.AddHook(HookFunc(contextFields))
	global = logger

	return logger
}

// Global returns the current global logger.
func Global() *Logger {
	return global
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	global.Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	global.Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	global.Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	global.Error(ctx, msg, fields...)
}

func DebugEnabled(ctx context.Context) bool {
	return global.DebugEnabled(ctx)
}
