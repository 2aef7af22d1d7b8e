package orm

import (
	"context"

	"github.com/calyxdb/orm/model"
)

// testModels is the fixture schema shared across this package's tests:
// Artist <- Album (cascade) <- Track (cascade), plus Track -> Artist
// (restrict) and Profile -> Artist (set null).
type testModels struct {
	r       *model.Registry
	artist  *model.Model
	album   *model.Model
	track   *model.Model
	profile *model.Model
}

func newTestModels() *testModels {
	r := model.NewRegistry()
	artist := r.MustDefine("Artist", []*model.Field{
		model.Integer("id", model.PrimaryKey()),
		model.String("name", 100),
		model.Text("bio", model.Nullable()),
	})
	album := r.MustDefine("Album", []*model.Field{
		model.Integer("id", model.PrimaryKey()),
		model.String("name", 100),
		model.ForeignKey("artist", artist, model.Cascade),
	})
	track := r.MustDefine("Track", []*model.Field{
		model.Integer("id", model.PrimaryKey()),
		model.String("title", 100),
		model.Integer("position", model.Default(1)),
		model.ForeignKey("album", album, model.Cascade),
		model.ForeignKey("composer", artist, model.Restrict, model.Nullable()),
	})
	profile := r.MustDefine("Profile", []*model.Field{
		model.Integer("id", model.PrimaryKey()),
		model.ForeignKey("artist", artist, model.SetNull, model.Nullable()),
	})
	return &testModels{r: r, artist: artist, album: album, track: track, profile: profile}
}

// fakeStorage is an in-memory Storage stub. Fetch responses are queued and
// popped per call; every statement that reaches it is recorded.
type fakeStorage struct {
	fetches [][]Row
	fetchI  int

	execResults []Result
	execI       int

	fetchErr error
	execErr  error
	beginErr error

	stmts []*Statement
	txs   []*fakeTx
}

func (f *fakeStorage) queueFetch(rows ...[]Row) {
	f.fetches = append(f.fetches, rows...)
}

func (f *fakeStorage) Exec(ctx context.Context, stmt *Statement) (Result, error) {
	f.stmts = append(f.stmts, stmt)
	if f.execErr != nil {
		return Result{}, f.execErr
	}
	if f.execI < len(f.execResults) {
		res := f.execResults[f.execI]
		f.execI++
		return res, nil
	}
	return Result{LastInsertID: 1, RowsAffected: 1}, nil
}

func (f *fakeStorage) Fetch(ctx context.Context, stmt *Statement) ([]Row, error) {
	f.stmts = append(f.stmts, stmt)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchI < len(f.fetches) {
		rows := f.fetches[f.fetchI]
		f.fetchI++
		return rows, nil
	}
	return nil, nil
}

func (f *fakeStorage) FetchOne(ctx context.Context, stmt *Statement) (Row, error) {
	rows, err := f.Fetch(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (f *fakeStorage) BeginTx(ctx context.Context) (Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	tx := &fakeTx{storage: f}
	f.txs = append(f.txs, tx)
	return tx, nil
}

// lastKind returns the recorded statement kinds, in order.
func (f *fakeStorage) kinds() []StmtKind {
	out := make([]StmtKind, 0, len(f.stmts))
	for _, s := range f.stmts {
		out = append(out, s.Kind)
	}
	return out
}

type fakeTx struct {
	storage    *fakeStorage
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, stmt *Statement) (Result, error) {
	return t.storage.Exec(ctx, stmt)
}

func (t *fakeTx) Fetch(ctx context.Context, stmt *Statement) ([]Row, error) {
	return t.storage.Fetch(ctx, stmt)
}

func (t *fakeTx) FetchOne(ctx context.Context, stmt *Statement) (Row, error) {
	return t.storage.FetchOne(ctx, stmt)
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) RollbackIfNotCommit() error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func newTestDB(tm *testModels) (*DB, *fakeStorage) {
	storage := &fakeStorage{}
	db := MustOpen(storage, DBWithRegistry(tm.r))
	return db, storage
}
