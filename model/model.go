package model

import (
	"time"

	"github.com/calyxdb/orm/internal/errs"
)

// Model is the compiled descriptor for one declared model: table name,
// ordered field registry and a back-reference to the registry it lives in.
// Constructed once by Registry.Define and immutable afterwards, so it is
// safe to share across concurrent operations without locking.
type Model struct {
	Name      string
	TableName string

	fields   *Fields
	registry *Registry
}

// Option mutates a model during Define.
type Option func(m *Model) error

// WithTableName overrides the derived table name.
func WithTableName(tableName string) Option {
	return func(m *Model) error {
		m.TableName = tableName
		return nil
	}
}

// Fields returns the model's field registry.
func (m *Model) Fields() *Fields {
	return m.fields
}

// PrimaryKey returns the primary-key field descriptor.
func (m *Model) PrimaryKey() *Field {
	return m.fields.PrimaryKey()
}

// Resolve looks up a field, accepting "pk" as an alias for the primary key.
func (m *Model) Resolve(name string) (*Field, error) {
	if name == "pk" {
		return m.fields.PrimaryKey(), nil
	}
	return m.fields.Resolve(name)
}

// Registry returns the registry this model was defined in.
func (m *Model) Registry() *Registry {
	return m.registry
}

// DefaultsForCreate fills supplied with declared defaults and auto
// timestamps, then verifies that no required field is left unset. Zero-arg
// default producers are invoked once per call, never cached. The error, if
// any, lists every missing field.
func (m *Model) DefaultsForCreate(supplied map[string]any, now time.Time) (map[string]any, error) {
	out := make(map[string]any, len(m.fields.Ordered()))
	for k, v := range supplied {
		out[k] = v
	}

	var missing []string
	for _, f := range m.fields.Ordered() {
		if _, ok := out[f.Name]; ok {
			continue
		}
		switch {
		case f.AutoNowAdd || f.AutoNow:
			out[f.Name] = now
		case f.DefaultFunc != nil:
			out[f.Name] = f.DefaultFunc()
		case f.HasDefault:
			out[f.Name] = f.Default
		case f.Required():
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, errs.NewErrMissingFields(m.Name, missing)
	}
	return out, nil
}

// AutoNowFields returns the fields stamped on every update.
func (m *Model) AutoNowFields() []*Field {
	var out []*Field
	for _, f := range m.fields.Ordered() {
		if f.AutoNow {
			out = append(out, f)
		}
	}
	return out
}

// Coercer is the validation collaborator: it turns a raw value into the
// typed value a field stores, or reports why it cannot.
type Coercer interface {
	Coerce(f *Field, raw any) (any, error)
}

// PKer is implemented by model instances so relation coercion can compare
// and store by primary key without depending on the instance type.
type PKer interface {
	PK() any
}
