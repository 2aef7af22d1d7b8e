package model

import (
	"github.com/calyxdb/orm/internal/errs"
)

// Fields is the per-model ordered field registry. Declaration order is kept
// so that compiled schemas and insert column lists stay deterministic.
type Fields struct {
	ordered []*Field
	byName  map[string]*Field
	pk      *Field
}

func newFields() *Fields {
	return &Fields{
		byName: make(map[string]*Field, 8),
	}
}

// Register validates and appends one descriptor. A malformed descriptor
// (duplicate name, second primary key, SET_NULL without allow_null) is a
// configuration error.
func (fs *Fields) Register(f *Field) error {
	if _, ok := fs.byName[f.Name]; ok {
		return errs.NewErrDuplicateField(f.Name)
	}
	if f.PrimaryKey {
		if fs.pk != nil {
			return errs.NewErrMultiplePrimaryKeys(f.Name)
		}
		fs.pk = f
	}
	if f.IsRelation() && f.OnDelete == SetNull && !f.AllowNull {
		return errs.NewErrSetNullOnNotNull(f.Name)
	}
	fs.ordered = append(fs.ordered, f)
	fs.byName[f.Name] = f
	return nil
}

// Resolve looks a field up by name.
func (fs *Fields) Resolve(name string) (*Field, error) {
	f, ok := fs.byName[name]
	if !ok {
		return nil, errs.NewErrUnknownField(name)
	}
	return f, nil
}

// Has reports whether name is a registered field.
func (fs *Fields) Has(name string) bool {
	_, ok := fs.byName[name]
	return ok
}

// Ordered returns the fields in declaration order. Callers must not mutate
// the returned slice.
func (fs *Fields) Ordered() []*Field {
	return fs.ordered
}

// PrimaryKey returns the single primary-key field, or nil when none was
// declared. Define rejects models without one, so on a registered model the
// result is never nil.
func (fs *Fields) PrimaryKey() *Field {
	return fs.pk
}
