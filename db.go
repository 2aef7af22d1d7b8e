package orm

import (
	"go.uber.org/zap"

	"github.com/calyxdb/orm/model"
	"github.com/calyxdb/orm/validate"
)

// core carries everything an operation needs: the storage collaborator, the
// model registry, the validation collaborator and the middleware chain. It
// is copied by value into query paths, the same way the builders share it.
type core struct {
	storage Storage
	r       *model.Registry
	coercer model.Coercer
	mdls    []Middleware
	logger  *zap.Logger
}

type DBOption func(*DB)

// DB is the entry point: an explicit configuration handle threaded through
// every QuerySet and engine call. There is no ambient process-wide default.
type DB struct {
	core
}

// Open wires a DB around a storage backend. By default it carries a fresh
// model registry, the validate coercer and a nop logger.
func Open(storage Storage, opts ...DBOption) (*DB, error) {
	db := &DB{
		core: core{
			storage: storage,
			r:       model.NewRegistry(),
			coercer: validate.New(),
			logger:  zap.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// MustOpen is Open, panicking on error.
func MustOpen(storage Storage, opts ...DBOption) *DB {
	db, err := Open(storage, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// DBWithRegistry shares a pre-built model registry.
func DBWithRegistry(r *model.Registry) DBOption {
	return func(db *DB) {
		db.r = r
	}
}

// DBWithCoercer swaps the validation collaborator.
func DBWithCoercer(c model.Coercer) DBOption {
	return func(db *DB) {
		db.coercer = c
	}
}

// DBWithMiddlewares installs the query middleware chain. Middlewares wrap
// every storage round-trip, first one outermost.
func DBWithMiddlewares(mdls ...Middleware) DBOption {
	return func(db *DB) {
		db.mdls = mdls
	}
}

// DBWithLogger installs a structured logger for engine-level events.
func DBWithLogger(logger *zap.Logger) DBOption {
	return func(db *DB) {
		db.logger = logger
	}
}

// Registry exposes the model registry for declarations.
func (db *DB) Registry() *model.Registry {
	return db.r
}

// Define declares a model on the DB's registry.
func (db *DB) Define(name string, fields []*model.Field, opts ...model.Option) (*model.Model, error) {
	return db.r.Define(name, fields, opts...)
}

// Query starts a QuerySet over m.
func (db *DB) Query(m *model.Model) *QuerySet {
	return &QuerySet{
		db:     db,
		model:  m,
		limit:  -1,
		offset: -1,
	}
}
