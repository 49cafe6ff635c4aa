package core

import "go.uber.org/zap"

// ZapLogger adapts a zap logger to Logger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps l; a nil logger yields a no-op zap logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{s: l.Sugar()}
}

// With returns a child logger carrying the given key/value pairs.
func (z *ZapLogger) With(args ...any) *ZapLogger {
	return &ZapLogger{s: z.s.With(args...)}
}

func (z *ZapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *ZapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *ZapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *ZapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

// Sync flushes buffered log entries.
func (z *ZapLogger) Sync() error { return z.s.Sync() }
