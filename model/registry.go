package model

import (
	"sync"
	"unicode"

	"github.com/calyxdb/orm/internal/errs"
)

// Relation is a directed edge: Field on Source points at Field.Target.
type Relation struct {
	Source *Model
	Field  *Field
}

// Registry holds every defined model, keyed by model name. It also tracks
// incoming relations per model so the delete path can apply referential
// actions. Read-only after declaration; sync.Map keeps concurrent Get calls
// cheap.
type Registry struct {
	models sync.Map // string -> *Model

	mu       sync.Mutex
	incoming map[string][]Relation // target model name -> referencing relations
}

func NewRegistry() *Registry {
	return &Registry{
		incoming: make(map[string][]Relation, 8),
	}
}

// Define validates the field list, compiles it into a Model and registers
// it. Field order is preserved. The table name derives from the model name
// (underscore case) unless WithTableName overrides it.
func (r *Registry) Define(name string, fields []*Field, opts ...Option) (*Model, error) {
	if _, ok := r.models.Load(name); ok {
		return nil, errs.NewErrDuplicateModel(name)
	}

	fs := newFields()
	for _, f := range fields {
		if err := fs.Register(f); err != nil {
			return nil, err
		}
	}
	if fs.PrimaryKey() == nil {
		return nil, errs.NewErrNoPrimaryKey(name)
	}

	m := &Model{
		Name:      name,
		TableName: underscoreName(name),
		fields:    fs,
		registry:  r,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	// Relation targets must allow null when SET_NULL is in play; the field
	// registry already rejected that case. What remains is wiring the
	// reverse edges for the delete path.
	r.mu.Lock()
	for _, f := range fs.Ordered() {
		if f.IsRelation() {
			tgt := f.Target.Name
			r.incoming[tgt] = append(r.incoming[tgt], Relation{Source: m, Field: f})
		}
	}
	r.mu.Unlock()

	r.models.Store(name, m)
	return m, nil
}

// MustDefine is Define, panicking on error. Intended for declaration-time
// wiring where a bad model is fatal anyway.
func (r *Registry) MustDefine(name string, fields []*Field, opts ...Option) *Model {
	m, err := r.Define(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Get fetches a previously defined model.
func (r *Registry) Get(name string) (*Model, error) {
	m, ok := r.models.Load(name)
	if !ok {
		return nil, errs.NewErrUnknownModel(name)
	}
	return m.(*Model), nil
}

// Referencing returns every relation pointing at m.
func (r *Registry) Referencing(m *Model) []Relation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.incoming[m.Name]
}

// All returns every registered model, in no particular order.
func (r *Registry) All() []*Model {
	var out []*Model
	r.models.Range(func(_, v any) bool {
		out = append(out, v.(*Model))
		return true
	})
	return out
}

// underscoreName converts a camel-case model name to underscore case.
// Album -> album, TrackSegment -> track_segment.
func underscoreName(name string) string {
	var buf []byte
	for i, v := range name {
		if unicode.IsUpper(v) {
			if i != 0 {
				buf = append(buf, '_')
			}
			buf = append(buf, byte(unicode.ToLower(v)))
		} else {
			buf = append(buf, byte(v))
		}
	}
	return string(buf)
}
