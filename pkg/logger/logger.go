package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 20
	maxLogBackups = 5
	maxLogAgeDays = 14
)

type ctxKey string

// RequestIDKey is the context key under which the request id middleware
// stores the id of the current request.
const RequestIDKey ctxKey = "request_id"

// Options controls how New builds the logger.
type Options struct {
	Production bool
	Level      string
	// File, when set, receives a copy of every entry and is rotated by size.
	File string
}

var global = zap.NewNop()

// New builds a zap logger. Development mode writes colored console output,
// production writes JSON with ISO8601 timestamps.
func New(opts Options) *zap.Logger {
	var encCfg zapcore.EncoderConfig
	var enc zapcore.Encoder
	if opts.Production {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	level := parseLevel(opts.Level)
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level)}

	if opts.File != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		writer := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(writer), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetGlobal replaces the process logger returned by L.
func SetGlobal(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global = l
}

// L returns the process logger. It is a no-op logger until SetGlobal is called.
func L() *zap.Logger {
	return global
}

// WithContext returns the process logger annotated with the request id
// carried by ctx, if any.
func WithContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return global
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return global.With(zap.String(string(RequestIDKey), id))
	}
	return global
}
