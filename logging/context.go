package logging

import (
	"context"

	kitzap "github.com/go-kit/kit/log/zap"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey uint32

const loggerKey contextKey = 1

// WithLogger adds the given go-kit Logger to the context so that it can be retrieved with GetLogger
func WithLogger(parent context.Context, logger log.Logger) context.Context {
	return context.WithValue(parent, loggerKey, logger)
}

// WithZap adds the given zap Logger to the context using sallust, along with its go-kit
// adaptation so that GetLogger returns it.
func WithZap(parent context.Context, logger *zap.Logger) context.Context {
	return WithLogger(
		sallust.With(parent, logger),
		NewZapLogger(logger),
	)
}

// GetZap retrieves the zap Logger placed with WithZap, or sallust.Default() if there is none
func GetZap(ctx context.Context) *zap.Logger {
	return sallust.Get(ctx)
}

// GetLogger retrieves the go-kit logger associated with the context.  If no logger is
// present in the context, DefaultLogger is returned instead.
func GetLogger(ctx context.Context) log.Logger {
	if logger, ok := ctx.Value(loggerKey).(log.Logger); ok {
		return logger
	}

	return DefaultLogger()
}

// NewZapLogger adapts a zap Logger onto the go-kit Logger interface.  Log events carrying a
// level are written at that level, and events without one are written at info.
func NewZapLogger(z *zap.Logger) log.Logger {
	return zapLevels{
		debug: kitzap.NewZapSugarLogger(z, zapcore.DebugLevel),
		info:  kitzap.NewZapSugarLogger(z, zapcore.InfoLevel),
		warn:  kitzap.NewZapSugarLogger(z, zapcore.WarnLevel),
		err:   kitzap.NewZapSugarLogger(z, zapcore.ErrorLevel),
	}
}

var (
	levelKey   = level.Key()
	levelDebug = level.DebugValue()
	levelWarn  = level.WarnValue()
	levelError = level.ErrorValue()
)

// zapLevels dispatches go-kit log events to the zap logger for their level
type zapLevels struct {
	debug, info, warn, err log.Logger
}

func (zl zapLevels) Log(keyvals ...interface{}) error {
	for i := 0; i+1 < len(keyvals); i += 2 {
		if keyvals[i] != levelKey {
			continue
		}

		switch keyvals[i+1] {
		case levelDebug:
			return zl.debug.Log(keyvals...)
		case levelWarn:
			return zl.warn.Log(keyvals...)
		case levelError:
			return zl.err.Log(keyvals...)
		}

		break
	}

	return zl.info.Log(keyvals...)
}
