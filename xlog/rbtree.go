package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xtree/lib/tree"
)

// NewRBTreeEventLogger traces every rbtree event at debug level.
// The returned observer is nil if the logger is nil.
func NewRBTreeEventLogger(logger XLogger, fields ...zap.Field) tree.RBTreeObserver {
	if logger == nil {
		return nil
	}
	l := logger.zap().Named("RBTree").With(fields...)
	return func(ev tree.RBEvent) {
		if ce := l.Check(zapcore.DebugLevel, "rbtree event"); ce != nil {
			ce.Write(zap.Stringer("event", ev))
		}
	}
}
