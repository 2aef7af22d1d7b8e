package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orm "github.com/calyxdb/orm"
	"github.com/calyxdb/orm/model"
)

func testQueryContext(t *testing.T) *orm.QueryContext {
	t.Helper()
	r := model.NewRegistry()
	m := r.MustDefine("Artist", []*model.Field{
		model.Integer("id", model.PrimaryKey()),
	})
	return &orm.QueryContext{
		Type:      "SELECT",
		Model:     m,
		Statement: &orm.Statement{Kind: orm.StmtSelect, Table: "artist", Limit: -1, Offset: -1},
	}
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	var observed any
	mw := MiddlewareBuilder{
		OnPanic: func(ctx context.Context, qc *orm.QueryContext, recovered any) {
			observed = recovered
		},
	}.Build()

	handler := mw(func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
		panic("driver blew up")
	})

	var res *orm.QueryResult
	assert.NotPanics(t, func() {
		res = handler(context.Background(), testQueryContext(t))
	})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "driver blew up")
	assert.Equal(t, "driver blew up", observed)
}

func TestMiddleware_PassesResultsThrough(t *testing.T) {
	mw := MiddlewareBuilder{}.Build()
	want := &orm.QueryResult{Result: []orm.Row{{"id": int64(1)}}}
	handler := mw(func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
		return want
	})
	assert.Same(t, want, handler(context.Background(), testQueryContext(t)))
}
