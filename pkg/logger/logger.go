package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = newSugared(false)
)

func newSugared(debug bool) *zap.SugaredLogger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap's default configs only fail on invalid output paths
		l = zap.NewNop()
	}
	return l.Sugar()
}

// Initialize replaces the package logger. Call once at process start.
func Initialize(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	log = newSugared(debug)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = log.Sync()
}

func Debug(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debugf(format, v...)
}

func Info(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Infof(format, v...)
}

func Warn(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warnf(format, v...)
}

func Error(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Errorf(format, v...)
}

// Fatal logs the message and exits the process.
func Fatal(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Fatalf(format, v...)
}
