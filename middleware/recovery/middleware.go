// Package recovery converts panics below it in the chain into query errors,
// so one bad middleware or a driver panic cannot take the process down.
package recovery

import (
	"context"
	"fmt"

	orm "github.com/calyxdb/orm"
)

type MiddlewareBuilder struct {
	// OnPanic observes the recovered value before it is turned into an
	// error. Optional.
	OnPanic func(ctx context.Context, qc *orm.QueryContext, recovered any)
}

func (m MiddlewareBuilder) Build() orm.Middleware {
	return func(next orm.Handler) orm.Handler {
		return func(ctx context.Context, qc *orm.QueryContext) (res *orm.QueryResult) {
			defer func() {
				if r := recover(); r != nil {
					if m.OnPanic != nil {
						m.OnPanic(ctx, qc, r)
					}
					res = &orm.QueryResult{
						Err: fmt.Errorf("orm: panic during %s on %s: %v",
							qc.Type, qc.Model.Name, r),
					}
				}
			}()
			return next(ctx, qc)
		}
	}
}
