package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

type Logger struct {
	*zap.SugaredLogger
}

// Configure replaces the process logger. Development mode writes coloured
// console output; otherwise JSON lines are written, which is what Lambda and
// log shippers expect. Unknown levels fall back to info.
func Configure(level string, development bool) (Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zaplog, err := cfg.Build()
	if err != nil {
		return Logger{}, err
	}

	sugar := zaplog.Sugar()

	mu.Lock()
	logger = sugar
	mu.Unlock()

	return Logger{SugaredLogger: sugar}, nil
}

func GetLogger() Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		zaplog, _ := zap.NewDevelopment()
		logger = zaplog.Sugar()
	}

	return Logger{SugaredLogger: logger}
}

// Nop returns a logger that discards everything, for tests.
func Nop() Logger {
	return Logger{SugaredLogger: zap.NewNop().Sugar()}
}
