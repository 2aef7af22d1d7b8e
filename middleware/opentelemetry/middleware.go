// Package opentelemetry opens one span per storage round-trip.
package opentelemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	orm "github.com/calyxdb/orm"
)

const instrumentationName = "github.com/calyxdb/orm/middleware/opentelemetry"

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

func (m *MiddlewareBuilder) Build() orm.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next orm.Handler) orm.Handler {
		return func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
			spanCtx, span := m.Tracer.Start(ctx, "orm."+qc.Type)
			defer span.End()

			span.SetAttributes(attribute.String("orm.model", qc.Model.Name))
			span.SetAttributes(attribute.String("db.sql.table", qc.Statement.Table))
			span.SetAttributes(attribute.String("db.operation", qc.Type))

			res := next(spanCtx, qc)
			if res.Err != nil {
				span.RecordError(res.Err)
				span.SetStatus(codes.Error, res.Err.Error())
			}
			return res
		}
	}
}
