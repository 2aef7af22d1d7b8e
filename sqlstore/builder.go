package sqlstore

import (
	"fmt"
	"strings"

	orm "github.com/calyxdb/orm"
)

// builder renders one backend-neutral statement into SQL text plus bind
// args. One builder per statement; not reusable.
type builder struct {
	sb      strings.Builder
	args    []any
	dialect Dialect
	quote   byte
}

func newBuilder(dialect Dialect) *builder {
	return &builder{
		dialect: dialect,
		quote:   dialect.quoter(),
	}
}

// buildQuery renders stmt for the dialect.
func buildQuery(dialect Dialect, stmt *orm.Statement) (string, []any, error) {
	b := newBuilder(dialect)
	var err error
	switch stmt.Kind {
	case orm.StmtSelect:
		err = b.buildSelect(stmt)
	case orm.StmtInsert:
		err = b.buildInsert(stmt)
	case orm.StmtUpdate:
		err = b.buildUpdate(stmt)
	case orm.StmtDelete:
		err = b.buildDelete(stmt)
	default:
		err = fmt.Errorf("sqlstore: unsupported statement kind %v", stmt.Kind)
	}
	if err != nil {
		return "", nil, err
	}
	return b.sb.String(), b.args, nil
}

func (b *builder) buildSelect(stmt *orm.Statement) error {
	b.sb.WriteString("SELECT ")
	if stmt.CountOnly {
		b.sb.WriteString("COUNT(*) AS ")
		b.quoted("count")
	} else {
		for i, c := range stmt.Columns {
			if i > 0 {
				b.sb.WriteByte(',')
			}
			b.column(c.Table, c.Column)
			b.sb.WriteString(" AS ")
			b.quoted(c.Alias)
		}
	}

	b.sb.WriteString(" FROM ")
	b.quoted(stmt.Table)

	for _, j := range stmt.Joins {
		b.sb.WriteString(" LEFT JOIN ")
		b.quoted(j.Table)
		b.sb.WriteString(" AS ")
		b.quoted(j.Alias)
		b.sb.WriteString(" ON ")
		b.column(j.FromTable, j.FromColumn)
		b.sb.WriteString(" = ")
		b.column(j.Alias, j.ToColumn)
	}

	if err := b.buildWhere(stmt.Where); err != nil {
		return err
	}

	if len(stmt.OrderBy) > 0 {
		b.sb.WriteString(" ORDER BY ")
		for i, o := range stmt.OrderBy {
			if i > 0 {
				b.sb.WriteByte(',')
			}
			b.column(o.Table, o.Column)
			if o.Desc {
				b.sb.WriteString(" DESC")
			} else {
				b.sb.WriteString(" ASC")
			}
		}
	}

	if stmt.Limit >= 0 {
		b.sb.WriteString(" LIMIT ")
		b.addArg(stmt.Limit)
	}
	if stmt.Offset >= 0 {
		b.sb.WriteString(" OFFSET ")
		b.addArg(stmt.Offset)
	}

	b.sb.WriteByte(';')
	return nil
}

func (b *builder) buildInsert(stmt *orm.Statement) error {
	if len(stmt.Rows) == 0 {
		return fmt.Errorf("sqlstore: insert with zero rows")
	}
	b.sb.WriteString("INSERT INTO ")
	b.quoted(stmt.Table)
	b.sb.WriteString(" (")
	for i, fv := range stmt.Rows[0] {
		if i > 0 {
			b.sb.WriteByte(',')
		}
		b.quoted(fv.Column)
	}
	b.sb.WriteString(") VALUES ")
	for ri, row := range stmt.Rows {
		if ri > 0 {
			b.sb.WriteByte(',')
		}
		b.sb.WriteByte('(')
		for i, fv := range row {
			if i > 0 {
				b.sb.WriteByte(',')
			}
			b.addArg(fv.Value)
		}
		b.sb.WriteByte(')')
	}
	b.sb.WriteByte(';')
	return nil
}

func (b *builder) buildUpdate(stmt *orm.Statement) error {
	b.sb.WriteString("UPDATE ")
	b.quoted(stmt.Table)
	b.sb.WriteString(" SET ")
	for i, fv := range stmt.Assignments {
		if i > 0 {
			b.sb.WriteByte(',')
		}
		b.quoted(fv.Column)
		b.sb.WriteString(" = ")
		b.addArg(fv.Value)
	}
	if err := b.buildWhere(stmt.Where); err != nil {
		return err
	}
	b.sb.WriteByte(';')
	return nil
}

func (b *builder) buildDelete(stmt *orm.Statement) error {
	b.sb.WriteString("DELETE FROM ")
	b.quoted(stmt.Table)
	if err := b.buildWhere(stmt.Where); err != nil {
		return err
	}
	b.sb.WriteByte(';')
	return nil
}

func (b *builder) buildWhere(where orm.Expression) error {
	if where == nil {
		return nil
	}
	b.sb.WriteString(" WHERE ")
	return b.buildExpression(where)
}

// buildExpression walks the filter tree. Predicate operands that are
// themselves predicates get parenthesized, the way the tree nests.
func (b *builder) buildExpression(e orm.Expression) error {
	if e == nil {
		return nil
	}
	switch expr := e.(type) {
	case orm.Column:
		b.column(expr.Table, expr.Name)
	case orm.Value:
		b.addArg(expr.Val)
	case orm.Values:
		b.sb.WriteByte('(')
		if len(expr.Vals) == 0 {
			// IN over an empty list matches nothing.
			b.sb.WriteString("NULL")
		}
		for i, v := range expr.Vals {
			if i > 0 {
				b.sb.WriteByte(',')
			}
			b.addArg(v)
		}
		b.sb.WriteByte(')')
	case orm.Predicate:
		return b.buildPredicate(expr)
	default:
		return fmt.Errorf("sqlstore: unsupported expression type %T", e)
	}
	return nil
}

func (b *builder) buildPredicate(p orm.Predicate) error {
	lower := p.Op == orm.OpILike && !b.dialect.supportsILike()

	if p.Left != nil {
		_, lp := p.Left.(orm.Predicate)
		if lp {
			b.sb.WriteByte('(')
		}
		if lower {
			b.sb.WriteString("LOWER(")
		}
		if err := b.buildExpression(p.Left); err != nil {
			return err
		}
		if lower {
			b.sb.WriteByte(')')
		}
		if lp {
			b.sb.WriteByte(')')
		}
	}

	if p.Left != nil {
		b.sb.WriteByte(' ')
	}
	if p.Op == orm.OpILike && !b.dialect.supportsILike() {
		b.sb.WriteString(orm.OpLike.String())
	} else {
		b.sb.WriteString(p.Op.String())
	}

	if p.Right == nil {
		return nil
	}
	b.sb.WriteByte(' ')

	_, rp := p.Right.(orm.Predicate)
	if rp {
		b.sb.WriteByte('(')
	}
	if lower {
		b.sb.WriteString("LOWER(")
	}
	if err := b.buildExpression(p.Right); err != nil {
		return err
	}
	if lower {
		b.sb.WriteByte(')')
	}
	if rp {
		b.sb.WriteByte(')')
	}

	if p.Escape != "" && (p.Op == orm.OpLike || p.Op == orm.OpILike) {
		b.sb.WriteString(" ESCAPE '")
		b.sb.WriteString(p.Escape)
		b.sb.WriteByte('\'')
	}
	return nil
}

func (b *builder) column(table, name string) {
	if table != "" {
		b.quoted(table)
		b.sb.WriteByte('.')
	}
	b.quoted(name)
}

func (b *builder) quoted(name string) {
	b.sb.WriteByte(b.quote)
	b.sb.WriteString(name)
	b.sb.WriteByte(b.quote)
}

func (b *builder) addArg(val any) {
	if b.args == nil {
		b.args = make([]any, 0, 8)
	}
	b.args = append(b.args, val)
	b.sb.WriteString(b.dialect.placeholder(len(b.args)))
}
