package orm

import "context"

// Row is one raw result row, keyed by projected column alias. Values carry
// whatever the storage collaborator produced; materialization runs them
// through the validation collaborator.
type Row map[string]any

// Result reports the outcome of a write.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Session is the execute/fetch surface shared by a storage backend and a
// transaction on it.
type Session interface {
	// Exec runs a write statement.
	Exec(ctx context.Context, stmt *Statement) (Result, error)
	// Fetch runs a read statement and returns every matching raw row.
	Fetch(ctx context.Context, stmt *Statement) ([]Row, error)
	// FetchOne runs a read statement and returns the first row, or nil
	// when nothing matched.
	FetchOne(ctx context.Context, stmt *Statement) (Row, error)
}

// Storage is the pluggable backend the engine executes against. Reads go
// straight through a Session; every logical write is wrapped in one
// transaction by the engine.
type Storage interface {
	Session
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a scoped transaction handle.
type Tx interface {
	Session
	Commit() error
	Rollback() error
	// RollbackIfNotCommit rolls back, treating an already-committed
	// transaction as a no-op.
	RollbackIfNotCommit() error
}
