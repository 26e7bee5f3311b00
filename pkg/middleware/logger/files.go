package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogDir is where rotated log files are written.
var LogDir = "log"

// level reads SENTINEL_LOG_LEVEL (debug, info, warn, error); default info.
func level() zapcore.Level {
	lvl := zap.InfoLevel
	if v := os.Getenv("SENTINEL_LOG_LEVEL"); v != "" {
		if err := lvl.UnmarshalText([]byte(v)); err != nil {
			return zap.InfoLevel
		}
	}
	return lvl
}

// NewLog tees JSON records to stdout and to the rotated file {LogDir}/{name}.
func NewLog(name string) *zap.Logger {
	_ = os.MkdirAll(LogDir, 0o755)

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(LogDir, name),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	lvl := level()
	return zap.New(zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), file, lvl),
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), lvl),
	))
}

var (
	accessMu  sync.Mutex
	accessLog *zap.Logger
)

// accessLogger opens http-access.log on first use.
func accessLogger() *zap.Logger {
	accessMu.Lock()
	defer accessMu.Unlock()
	if accessLog == nil {
		accessLog = NewLog("http-access.log")
	}
	return accessLog
}

// SetAccessLogger overrides the access logger (tests, CLI).
func SetAccessLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	accessMu.Lock()
	accessLog = l
	accessMu.Unlock()
}
