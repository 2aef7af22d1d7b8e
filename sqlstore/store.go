package sqlstore

import (
	"context"
	"database/sql"

	orm "github.com/calyxdb/orm"
)

// Store executes statements against a database/sql backend. It implements
// orm.Storage.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

type StoreOption func(*Store)

func WithDialect(d Dialect) StoreOption {
	return func(s *Store) {
		s.dialect = d
	}
}

// Open opens a driver/DSN pair. The connection is verified lazily, on first
// use, the way database/sql behaves.
func Open(driver, dsn string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return OpenDB(db, opts...), nil
}

// OpenDB wraps an existing pool, e.g. one shared with other components or a
// sqlmock handle in tests.
func OpenDB(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:      db,
		dialect: SQLite3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for schema management and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Exec(ctx context.Context, stmt *orm.Statement) (orm.Result, error) {
	return exec(ctx, s.db, s.dialect, stmt)
}

func (s *Store) Fetch(ctx context.Context, stmt *orm.Statement) ([]orm.Row, error) {
	return fetch(ctx, s.db, s.dialect, stmt)
}

func (s *Store) FetchOne(ctx context.Context, stmt *orm.Statement) (orm.Row, error) {
	return fetchOne(ctx, s.db, s.dialect, stmt)
}

func (s *Store) BeginTx(ctx context.Context) (orm.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, dialect: s.dialect}, nil
}

// Tx routes statements through one *sql.Tx.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) Exec(ctx context.Context, stmt *orm.Statement) (orm.Result, error) {
	return exec(ctx, t.tx, t.dialect, stmt)
}

func (t *Tx) Fetch(ctx context.Context, stmt *orm.Statement) ([]orm.Row, error) {
	return fetch(ctx, t.tx, t.dialect, stmt)
}

func (t *Tx) FetchOne(ctx context.Context, stmt *orm.Statement) (orm.Row, error) {
	return fetchOne(ctx, t.tx, t.dialect, stmt)
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func (t *Tx) RollbackIfNotCommit() error {
	err := t.tx.Rollback()
	if err != sql.ErrTxDone {
		return err
	}
	return nil
}

// runner is the subset of *sql.DB and *sql.Tx the executors need.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func exec(ctx context.Context, r runner, d Dialect, stmt *orm.Statement) (orm.Result, error) {
	query, args, err := buildQuery(d, stmt)
	if err != nil {
		return orm.Result{}, err
	}
	res, err := r.ExecContext(ctx, query, args...)
	if err != nil {
		return orm.Result{}, d.translateError(err)
	}
	// Not every backend reports a last insert id; the engine only reads it
	// for integer primary keys it left unset.
	lastID, _ := res.LastInsertId()
	affected, err := res.RowsAffected()
	if err != nil {
		return orm.Result{}, err
	}
	return orm.Result{LastInsertID: lastID, RowsAffected: affected}, nil
}

func fetch(ctx context.Context, r runner, d Dialect, stmt *orm.Statement) ([]orm.Row, error) {
	query, args, err := buildQuery(d, stmt)
	if err != nil {
		return nil, err
	}
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.translateError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []orm.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(orm.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeScanned(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func fetchOne(ctx context.Context, r runner, d Dialect, stmt *orm.Statement) (orm.Row, error) {
	rows, err := fetch(ctx, r, d, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// normalizeScanned converts driver-specific byte slices to strings so the
// coercion layer sees one canonical raw shape per backend.
func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
