// Package querycache is a read-through cache for SELECT round-trips. Hits
// skip the storage backend entirely; every write invalidates the cached
// reads tagged with the table it touched, so a cascade invalidates each
// child table as its statement flows through the chain.
//
// Cached rows re-enter the engine through the same coercion path as fresh
// rows, so the JSON round-trip (integers surfacing as float64, timestamps as
// strings) is absorbed before values reach instances.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	orm "github.com/calyxdb/orm"
	"github.com/calyxdb/orm/cache"
)

type MiddlewareBuilder struct {
	store cache.Store
}

func NewBuilder(store cache.Store) *MiddlewareBuilder {
	return &MiddlewareBuilder{store: store}
}

func (m *MiddlewareBuilder) Build() orm.Middleware {
	return func(next orm.Handler) orm.Handler {
		return func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
			if qc.Statement.Kind != orm.StmtSelect {
				res := next(ctx, qc)
				if res.Err == nil {
					// Cache consistency over availability: a failed
					// invalidation fails the write.
					if err := m.store.Invalidate(ctx, qc.Statement.Table); err != nil {
						return &orm.QueryResult{Err: err}
					}
				}
				return res
			}

			key := fingerprint(qc.Statement)
			if payload, ok, err := m.store.Get(ctx, key); err == nil && ok {
				var rows []orm.Row
				if err := json.Unmarshal(payload, &rows); err == nil {
					return &orm.QueryResult{Result: rows}
				}
			}

			res := next(ctx, qc)
			if res.Err != nil {
				return res
			}
			rows, ok := res.Result.([]orm.Row)
			if !ok {
				return res
			}
			if payload, err := json.Marshal(rows); err == nil {
				// Best effort; a full or unreachable store only costs the
				// next read a backend round-trip.
				_ = m.store.Set(ctx, key, payload, tables(qc.Statement))
			}
			return res
		}
	}
}

// fingerprint derives a stable key from the compiled statement, bind values
// included. Two equal queries collapse onto one entry.
func fingerprint(stmt *orm.Statement) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%v|%v|%v|%v|%d|%d|%t",
		stmt.Table, stmt.Columns, stmt.Joins, stmt.Where,
		stmt.OrderBy, stmt.Limit, stmt.Offset, stmt.CountOnly)
	return fmt.Sprintf("%s:%x", stmt.Table, h.Sum64())
}

// tables lists every table the read touched, base plus joins.
func tables(stmt *orm.Statement) []string {
	out := make([]string, 0, 1+len(stmt.Joins))
	out = append(out, stmt.Table)
	for _, j := range stmt.Joins {
		out = append(out, j.Table)
	}
	return out
}
