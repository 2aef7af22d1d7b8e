package orm

import (
	"context"
	"time"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

// Instance is one persisted row, mapped field name to typed value. It is in
// one of two states: fully hydrated, or sparse, carrying only the primary
// key of a row referenced through a relation. A sparse instance refuses any
// other field access until Load succeeds.
//
// Instances are not safe for concurrent mutation; a caller owning one
// serializes its own updates.
type Instance struct {
	db    *DB
	model *model.Model

	fields  map[string]any
	sparse  bool
	deleted bool
}

func newHydratedInstance(db *DB, m *model.Model, fields map[string]any) *Instance {
	return &Instance{db: db, model: m, fields: fields}
}

// newSparseInstance builds the stand-in for an unresolved relation: just
// the target's primary key.
func newSparseInstance(db *DB, m *model.Model, pk any) *Instance {
	return &Instance{
		db:     db,
		model:  m,
		fields: map[string]any{m.PrimaryKey().Name: pk},
		sparse: true,
	}
}

// Model returns the instance's model descriptor.
func (in *Instance) Model() *model.Model {
	return in.model
}

// Sparse reports whether the instance carries only its primary key.
func (in *Instance) Sparse() bool {
	return in.sparse
}

// PK returns the primary-key value. Available in both states.
func (in *Instance) PK() any {
	return in.fields[in.model.PrimaryKey().Name]
}

var _ model.PKer = &Instance{}

// Get returns a field value. On a sparse instance any field other than the
// primary key is a not-loaded error until Load succeeds.
func (in *Instance) Get(name string) (any, error) {
	f, err := in.model.Resolve(name)
	if err != nil {
		return nil, err
	}
	if in.sparse && !f.PrimaryKey {
		return nil, errs.ErrNotLoaded
	}
	return in.fields[f.Name], nil
}

// MustGet is Get, panicking on error. For tests and wiring code.
func (in *Instance) MustGet(name string) any {
	v, err := in.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Related returns the instance standing in for a relation field: sparse
// unless the originating query eager-loaded it. A null relation yields nil.
func (in *Instance) Related(name string) (*Instance, error) {
	f, err := in.model.Resolve(name)
	if err != nil {
		return nil, err
	}
	if !f.IsRelation() {
		return nil, errs.NewErrNotRelation(in.model.Name, name)
	}
	v, err := in.Get(f.Name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if rel, ok := v.(*Instance); ok {
		return rel, nil
	}
	// A raw pk expands to a sparse stand-in.
	return newSparseInstance(in.db, f.Target, v), nil
}

// Update coerces the assignments, stamps auto-now fields, issues an UPDATE
// keyed by primary key inside one transaction and rewrites the in-memory
// state on success.
func (in *Instance) Update(ctx context.Context, assigns ...Assignment) error {
	if in.deleted {
		return errs.ErrInstanceDeleted
	}
	values, err := in.db.coerceAssignments(in.model, assigns, true)
	if err != nil {
		return err
	}

	stmt := updateStatement(in.model, values, pkPredicate(in.model, in.PK()))
	if err := in.db.execInTx(ctx, in.model, stmt, "update"); err != nil {
		return err
	}
	for name, v := range values {
		f, _ := in.model.Fields().Resolve(name)
		in.setField(f, v)
	}
	return nil
}

// Delete removes the row, applying referential actions to every referencing
// row first, all inside one transaction. The instance is logically dead
// afterwards: further Update or Delete calls fail.
func (in *Instance) Delete(ctx context.Context) error {
	if in.deleted {
		return errs.ErrInstanceDeleted
	}
	if err := in.db.deleteByPKs(ctx, in.model, []any{in.PK()}); err != nil {
		return err
	}
	in.deleted = true
	return nil
}

// Load resolves a sparse instance with a point lookup by primary key. When
// the row vanished between the reference and the load, the result is a
// does-not-exist error.
func (in *Instance) Load(ctx context.Context) error {
	qs := in.db.Query(in.model)
	stmt, err := qs.Filter(C("pk", in.PK())).Build()
	if err != nil {
		return err
	}
	rows, err := in.db.fetch(ctx, in.db.storage, in.model, stmt)
	if err != nil {
		return errs.WrapStorage("load", in.model.Name, err)
	}
	if len(rows) == 0 {
		return errs.ErrDoesNotExist
	}
	loaded, err := in.db.materialize(rows[0], in.model, nil)
	if err != nil {
		return err
	}
	in.fields = loaded.fields
	in.sparse = false
	return nil
}

// setField stores a typed value, expanding raw relation pks into sparse
// stand-ins.
func (in *Instance) setField(f *model.Field, val any) {
	if f.IsRelation() && val != nil {
		if _, ok := val.(*Instance); !ok {
			val = newSparseInstance(in.db, f.Target, val)
		}
	}
	in.fields[f.Name] = val
}

// Equal compares two instances field by field. Relations compare by pk.
func (in *Instance) Equal(other *Instance) bool {
	if other == nil || in.model != other.model {
		return false
	}
	for _, f := range in.model.Fields().Ordered() {
		a, b := in.fields[f.Name], other.fields[f.Name]
		if ai, ok := a.(*Instance); ok {
			a = ai.PK()
		}
		if bi, ok := b.(*Instance); ok {
			b = bi.PK()
		}
		if ta, ok := a.(time.Time); ok {
			if tb, ok2 := b.(time.Time); ok2 {
				if !ta.Equal(tb) {
					return false
				}
				continue
			}
			return false
		}
		if a != b {
			return false
		}
	}
	return true
}
