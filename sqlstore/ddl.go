package sqlstore

import (
	"context"
	"strings"

	"github.com/calyxdb/orm/model"
)

// CreateTable issues CREATE TABLE IF NOT EXISTS for one compiled schema,
// plus CREATE INDEX for its non-unique indexes. Unique constraints go inline
// on the column.
func (s *Store) CreateTable(ctx context.Context, schema *model.TableSchema) error {
	q := byte(s.dialect.quoter())
	quote := func(sb *strings.Builder, name string) {
		sb.WriteByte(q)
		sb.WriteString(name)
		sb.WriteByte(q)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	quote(&sb, schema.Table)
	sb.WriteString(" (")
	for i, col := range schema.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		quote(&sb, col.Name)
		sb.WriteByte(' ')
		sb.WriteString(s.dialect.columnType(col))
		if col.Name == schema.PrimaryKey {
			sb.WriteString(" PRIMARY KEY")
			if col.Kind == model.KindInteger || col.Kind == model.KindBigInteger {
				sb.WriteString(s.dialect.autoIncrement())
			}
		} else if !col.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if col.Unique && col.Name != schema.PrimaryKey {
			sb.WriteString(" UNIQUE")
		}
	}
	for _, fk := range schema.ForeignKeys {
		sb.WriteString(", FOREIGN KEY (")
		quote(&sb, fk.Column)
		sb.WriteString(") REFERENCES ")
		quote(&sb, fk.RefTable)
		sb.WriteString(" (")
		quote(&sb, fk.RefColumn)
		sb.WriteByte(')')
	}
	sb.WriteString(");")

	if _, err := s.db.ExecContext(ctx, sb.String()); err != nil {
		return s.dialect.translateError(err)
	}

	for _, idx := range schema.Indexes {
		if idx.Unique {
			// Already enforced inline.
			continue
		}
		var ib strings.Builder
		ib.WriteString("CREATE INDEX IF NOT EXISTS ")
		quote(&ib, idx.Name)
		ib.WriteString(" ON ")
		quote(&ib, schema.Table)
		ib.WriteString(" (")
		quote(&ib, idx.Column)
		ib.WriteString(");")
		if _, err := s.db.ExecContext(ctx, ib.String()); err != nil {
			return s.dialect.translateError(err)
		}
	}
	return nil
}

// DropTable removes the table if it exists.
func (s *Store) DropTable(ctx context.Context, schema *model.TableSchema) error {
	var sb strings.Builder
	sb.WriteString("DROP TABLE IF EXISTS ")
	sb.WriteByte(s.dialect.quoter())
	sb.WriteString(schema.Table)
	sb.WriteByte(s.dialect.quoter())
	sb.WriteByte(';')
	if _, err := s.db.ExecContext(ctx, sb.String()); err != nil {
		return s.dialect.translateError(err)
	}
	return nil
}
