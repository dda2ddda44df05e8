package orm

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger logs queries at debug level through a zap.Logger.
type ZapLogger struct {
	l *zap.Logger
}

// NewZapLogger returns a Logger backed by l. A nil l logs nothing.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{l: l.Named("orm")}
}

func (z *ZapLogger) Log(_ context.Context, query string, args ...any) {
	z.l.Debug("query", zap.String("sql", query), zap.Any("args", args))
}

var _ Logger = (*ZapLogger)(nil)
