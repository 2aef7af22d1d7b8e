// Package accesslog logs one line per storage round-trip.
package accesslog

import (
	"context"
	"time"

	"go.uber.org/zap"

	orm "github.com/calyxdb/orm"
)

type MiddlewareBuilder struct {
	logger *zap.Logger
}

func NewBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{}
}

// Logger sets the destination logger. Without one, Build falls back to a
// no-op logger, which keeps the middleware safe to wire unconditionally.
func (m *MiddlewareBuilder) Logger(logger *zap.Logger) *MiddlewareBuilder {
	m.logger = logger
	return m
}

func (m *MiddlewareBuilder) Build() orm.Middleware {
	logger := m.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next orm.Handler) orm.Handler {
		return func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
			start := time.Now()
			res := next(ctx, qc)
			fields := []zap.Field{
				zap.String("model", qc.Model.Name),
				zap.String("type", qc.Type),
				zap.String("table", qc.Statement.Table),
				zap.Duration("duration", time.Since(start)),
			}
			if res.Err != nil {
				logger.Error("query failed", append(fields, zap.Error(res.Err))...)
			} else {
				logger.Info("query", fields...)
			}
			return res
		}
	}
}
