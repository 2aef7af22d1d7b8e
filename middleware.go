package orm

import (
	"context"

	"github.com/calyxdb/orm/model"
)

// QueryContext is what middlewares see around one storage round-trip. The
// statement is already compiled, so caching or rewriting middlewares can
// inspect it without re-running the builder.
type QueryContext struct {
	// Type is the statement kind: SELECT, INSERT, UPDATE or DELETE.
	Type string

	Model     *model.Model
	Statement *Statement
}

// QueryResult carries the raw outcome back up the chain. For reads Result
// holds []Row; for writes it holds a Result value.
type QueryResult struct {
	Result any
	Err    error
}

type Handler func(ctx context.Context, qc *QueryContext) *QueryResult

type Middleware func(next Handler) Handler

// invoke runs root through the middleware chain, last middleware innermost.
func (c core) invoke(ctx context.Context, qc *QueryContext, root Handler) *QueryResult {
	handler := root
	for i := len(c.mdls) - 1; i >= 0; i-- {
		handler = c.mdls[i](handler)
	}
	return handler(ctx, qc)
}

// fetch routes a read through the middleware chain to sess.
func (c core) fetch(ctx context.Context, sess Session, m *model.Model, stmt *Statement) ([]Row, error) {
	qc := &QueryContext{Type: stmt.Kind.String(), Model: m, Statement: stmt}
	res := c.invoke(ctx, qc, func(ctx context.Context, qc *QueryContext) *QueryResult {
		rows, err := sess.Fetch(ctx, qc.Statement)
		return &QueryResult{Result: rows, Err: err}
	})
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Result == nil {
		return nil, nil
	}
	return res.Result.([]Row), nil
}

// exec routes a write through the middleware chain to sess.
func (c core) exec(ctx context.Context, sess Session, m *model.Model, stmt *Statement) (Result, error) {
	qc := &QueryContext{Type: stmt.Kind.String(), Model: m, Statement: stmt}
	res := c.invoke(ctx, qc, func(ctx context.Context, qc *QueryContext) *QueryResult {
		r, err := sess.Exec(ctx, qc.Statement)
		return &QueryResult{Result: r, Err: err}
	})
	if res.Err != nil {
		return Result{}, res.Err
	}
	if r, ok := res.Result.(Result); ok {
		return r, nil
	}
	return Result{}, nil
}
