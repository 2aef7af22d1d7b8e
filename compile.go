package orm

import (
	"fmt"
	"strings"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

// joinSet tracks the LEFT JOINs a statement needs, one per distinct
// relationship path, in first-use order. The join alias is the path itself
// ("album", "album__artist"), which also namespaces projected columns.
type joinSet struct {
	base  string
	joins []Join
	seen  map[string]string
}

func newJoinSet(base string) *joinSet {
	return &joinSet{base: base, seen: make(map[string]string, 4)}
}

// walk adds joins for every hop and returns the alias of the last one, or
// the base table when there are no hops.
func (js *joinSet) walk(hops []*model.Field) string {
	parent := js.base
	path := ""
	for _, f := range hops {
		if path == "" {
			path = f.Name
		} else {
			path = path + "__" + f.Name
		}
		alias, ok := js.seen[path]
		if !ok {
			alias = path
			js.joins = append(js.joins, Join{
				Table:      f.Target.TableName,
				Alias:      alias,
				FromTable:  parent,
				FromColumn: f.ColName,
				ToColumn:   f.Target.PrimaryKey().ColName,
			})
			js.seen[path] = alias
		}
		parent = alias
	}
	return parent
}

// Build compiles the queryset into a backend-neutral SELECT statement. The
// translation is pure: no storage is touched and the queryset stays usable.
func (qs *QuerySet) Build() (*Statement, error) {
	if qs.err != nil {
		return nil, qs.err
	}

	js := newJoinSet(qs.model.TableName)
	stmt := &Statement{
		Kind:   StmtSelect,
		Table:  qs.model.TableName,
		Limit:  qs.limit,
		Offset: qs.offset,
	}

	// Base projection, then one aliased block per eager-loaded path. A
	// multi-hop path hydrates every model along the way, so each prefix
	// projects too.
	for _, f := range qs.model.Fields().Ordered() {
		stmt.Columns = append(stmt.Columns, ColumnRef{
			Table:  qs.model.TableName,
			Column: f.ColName,
			Alias:  f.ColName,
		})
	}
	projected := map[string]bool{}
	for _, rp := range qs.related {
		for i := 1; i <= len(rp.hops); i++ {
			prefix := js.walk(rp.hops[:i])
			if projected[prefix] {
				continue
			}
			projected[prefix] = true
			target := rp.hops[i-1].Target
			for _, f := range target.Fields().Ordered() {
				stmt.Columns = append(stmt.Columns, ColumnRef{
					Table:  prefix,
					Column: f.ColName,
					Alias:  prefix + "__" + f.ColName,
				})
			}
		}
	}

	where, err := qs.buildWhere(js)
	if err != nil {
		return nil, err
	}
	stmt.Where = where
	stmt.Joins = js.joins

	for _, ok := range qs.orderBy {
		stmt.OrderBy = append(stmt.OrderBy, Ordering{
			Table:  qs.model.TableName,
			Column: ok.field.ColName,
			Desc:   ok.desc,
		})
	}
	return stmt, nil
}

// buildWhere folds every predicate group (and search term) into one
// expression tree: groups AND together, an exclude group is negated whole.
func (qs *QuerySet) buildWhere(js *joinSet) (Expression, error) {
	var acc *Predicate

	and := func(p Predicate) {
		if acc == nil {
			acc = &p
			return
		}
		combined := acc.And(p)
		acc = &combined
	}

	for _, group := range qs.groups {
		var gp *Predicate
		for _, pred := range group.preds {
			p, err := qs.buildPredicate(pred, js)
			if err != nil {
				return nil, err
			}
			if gp == nil {
				gp = &p
			} else {
				combined := gp.And(p)
				gp = &combined
			}
		}
		if gp == nil {
			continue
		}
		if group.exclude {
			and(Not(*gp))
		} else {
			and(*gp)
		}
	}

	for _, term := range qs.search {
		p, ok, err := qs.buildSearch(term)
		if err != nil {
			return nil, err
		}
		if ok {
			and(p)
		}
	}

	if acc == nil {
		return nil, nil
	}
	return *acc, nil
}

func (qs *QuerySet) buildPredicate(pred fieldPredicate, js *joinSet) (Predicate, error) {
	col := Column{Table: js.walk(pred.hops), Name: pred.field.ColName}
	val := normalizeValue(pred.value)

	switch pred.op {
	case opExact:
		if val == nil {
			return Predicate{Left: col, Op: OpIsNull}, nil
		}
		return Predicate{Left: col, Op: OpEQ, Right: Value{Val: val}}, nil
	case opIExact:
		return Predicate{Left: col, Op: OpILike, Right: Value{Val: val}}, nil
	case opContains, opIContains:
		pattern, escaped, err := likePattern(pred.field.Name, val)
		if err != nil {
			return Predicate{}, err
		}
		op := OpLike
		if pred.op == opIContains {
			op = OpILike
		}
		p := Predicate{Left: col, Op: op, Right: Value{Val: pattern}}
		if escaped {
			p.Escape = `\`
		}
		return p, nil
	case opLt:
		return Predicate{Left: col, Op: OpLT, Right: Value{Val: val}}, nil
	case opLte:
		return Predicate{Left: col, Op: OpLTE, Right: Value{Val: val}}, nil
	case opGt:
		return Predicate{Left: col, Op: OpGT, Right: Value{Val: val}}, nil
	case opGte:
		return Predicate{Left: col, Op: OpGTE, Right: Value{Val: val}}, nil
	case opIn:
		vals, err := expandList(pred.field.Name, pred.value)
		if err != nil {
			return Predicate{}, err
		}
		return Predicate{Left: col, Op: OpIn, Right: Values{Vals: vals}}, nil
	}
	return Predicate{}, errs.NewErrUnknownOperator(string(pred.op))
}

// buildSearch ORs a case-insensitive substring match over every string and
// text field of the model. A model with no such fields contributes no
// clause at all; the second result reports whether one was built.
func (qs *QuerySet) buildSearch(term string) (Predicate, bool, error) {
	pattern, escaped, err := likePattern("search", term)
	if err != nil {
		return Predicate{}, false, err
	}
	var acc *Predicate
	for _, f := range qs.model.Fields().Ordered() {
		if f.Kind != model.KindString && f.Kind != model.KindText {
			continue
		}
		p := Predicate{
			Left:  Column{Table: qs.model.TableName, Name: f.ColName},
			Op:    OpILike,
			Right: Value{Val: pattern},
		}
		if escaped {
			p.Escape = `\`
		}
		if acc == nil {
			acc = &p
		} else {
			combined := acc.Or(p)
			acc = &combined
		}
	}
	if acc == nil {
		return Predicate{}, false, nil
	}
	return *acc, true, nil
}

// normalizeValue collapses model instances to their primary key so a
// relation can be filtered by instance directly.
func normalizeValue(val any) any {
	if pker, ok := val.(model.PKer); ok {
		return pker.PK()
	}
	return val
}

// likePattern escapes % and _ in the needle and wraps it for a substring
// match. The second result reports whether escaping happened, so the
// renderer can emit an ESCAPE clause only when needed.
func likePattern(field string, val any) (string, bool, error) {
	s, ok := val.(string)
	if !ok {
		return "", false, errs.NewErrInvalidValue(field, "contains lookup requires a string")
	}
	escaped := false
	for _, c := range likeEscapeChars {
		if strings.Contains(s, c) {
			escaped = true
			s = strings.ReplaceAll(s, c, `\`+c)
		}
	}
	return "%" + s + "%", escaped, nil
}

// expandList flattens the argument of an in lookup into bind values.
func expandList(field string, val any) ([]any, error) {
	var out []any
	switch vs := val.(type) {
	case []any:
		out = make([]any, 0, len(vs))
		for _, v := range vs {
			out = append(out, normalizeValue(v))
		}
	case []int:
		out = make([]any, 0, len(vs))
		for _, v := range vs {
			out = append(out, int64(v))
		}
	case []int64:
		out = make([]any, 0, len(vs))
		for _, v := range vs {
			out = append(out, v)
		}
	case []string:
		out = make([]any, 0, len(vs))
		for _, v := range vs {
			out = append(out, v)
		}
	default:
		return nil, errs.NewErrInvalidValue(field,
			fmt.Sprintf("in lookup requires a slice, got %T", val))
	}
	return out, nil
}
