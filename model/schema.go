package model

// TableSchema is the physical schema compiled from a model. It is the
// contract a DDL-issuing or migration tool consumes; the query core only
// produces it.
type TableSchema struct {
	Table       string
	Columns     []ColumnDef
	PrimaryKey  string
	Indexes     []IndexDef
	ForeignKeys []FKDef
}

type ColumnDef struct {
	Name      string
	Kind      Kind
	Nullable  bool
	Unique    bool
	MaxLength int
}

type IndexDef struct {
	Name   string
	Column string
	Unique bool
}

type FKDef struct {
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  OnDelete
}

// Compile derives the physical table schema from the field registry. Pure
// and idempotent: calling it twice yields equal results and never mutates
// the model.
func (m *Model) Compile() *TableSchema {
	fields := m.fields.Ordered()
	schema := &TableSchema{
		Table:      m.TableName,
		Columns:    make([]ColumnDef, 0, len(fields)),
		PrimaryKey: m.fields.PrimaryKey().ColName,
	}

	for _, f := range fields {
		kind := f.Kind
		maxLen := f.MaxLength
		if f.IsRelation() {
			// The column stores the target's primary key.
			pk := f.Target.PrimaryKey()
			kind = pk.Kind
			maxLen = pk.MaxLength
		}
		schema.Columns = append(schema.Columns, ColumnDef{
			Name:      f.ColName,
			Kind:      kind,
			Nullable:  f.AllowNull && !f.PrimaryKey,
			Unique:    f.Unique,
			MaxLength: maxLen,
		})

		if f.Index || f.Unique {
			schema.Indexes = append(schema.Indexes, IndexDef{
				Name:   "ix_" + m.TableName + "_" + f.ColName,
				Column: f.ColName,
				Unique: f.Unique,
			})
		}
		if f.IsRelation() {
			schema.ForeignKeys = append(schema.ForeignKeys, FKDef{
				Column:    f.ColName,
				RefTable:  f.Target.TableName,
				RefColumn: f.Target.PrimaryKey().ColName,
				OnDelete:  f.OnDelete,
			})
		}
	}
	return schema
}
