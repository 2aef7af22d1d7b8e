package orm

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

// All executes the queryset and materializes every matching row.
func (qs *QuerySet) All(ctx context.Context) ([]*Instance, error) {
	stmt, err := qs.Build()
	if err != nil {
		return nil, err
	}
	rows, err := qs.db.fetch(ctx, qs.db.storage, qs.model, stmt)
	if err != nil {
		return nil, errs.WrapStorage("select", qs.model.Name, err)
	}
	out := make([]*Instance, 0, len(rows))
	for _, row := range rows {
		inst, err := qs.db.materialize(row, qs.model, qs.related)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// First returns the first row under the current ordering, defaulting to
// ascending primary key, or nil when nothing matches. It never fails on an
// empty result.
func (qs *QuerySet) First(ctx context.Context) (*Instance, error) {
	q := qs
	if len(q.orderBy) == 0 {
		q = q.OrderBy("pk")
	}
	rows, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Get requires exactly one matching row: ErrNoMatch on zero,
// ErrMultipleMatches on more than one. Only the limit is overridden; a
// chained offset still applies, so cardinality is judged inside the
// caller's window.
func (qs *QuerySet) Get(ctx context.Context, conds ...Cond) (*Instance, error) {
	q := qs.Filter(conds...)
	rows, err := q.Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, errs.WrapStorage("get", qs.model.Name, errs.ErrNoMatch)
	case 1:
		return rows[0], nil
	default:
		return nil, errs.WrapStorage("get", qs.model.Name, errs.ErrMultipleMatches)
	}
}

// Exists reports whether any row matches.
func (qs *QuerySet) Exists(ctx context.Context) (bool, error) {
	stmt, err := qs.Limit(1).Build()
	if err != nil {
		return false, err
	}
	rows, err := qs.db.fetch(ctx, qs.db.storage, qs.model, stmt)
	if err != nil {
		return false, errs.WrapStorage("exists", qs.model.Name, err)
	}
	return len(rows) > 0, nil
}

// Count returns the number of rows in the queryset's window: a chained
// limit or offset bounds the count the same way it bounds All. The
// statement itself counts unbounded and the window is applied to the
// total, which is equivalent to counting the limited subquery.
func (qs *QuerySet) Count(ctx context.Context) (int64, error) {
	stmt, err := qs.Build()
	if err != nil {
		return 0, err
	}
	stmt.CountOnly = true
	stmt.Columns = nil
	stmt.OrderBy = nil
	stmt.Limit = -1
	stmt.Offset = -1

	row, err := qs.db.fetchOne(ctx, qs.db.storage, qs.model, stmt)
	if err != nil {
		return 0, errs.WrapStorage("count", qs.model.Name, err)
	}
	if row == nil {
		return 0, nil
	}
	total := toInt64(row["count"])
	if qs.offset > 0 {
		total -= int64(qs.offset)
		if total < 0 {
			total = 0
		}
	}
	if qs.limit >= 0 && total > int64(qs.limit) {
		total = int64(qs.limit)
	}
	return total, nil
}

// Create validates and inserts one row and returns the hydrated instance.
// The write runs in its own transaction.
func (qs *QuerySet) Create(ctx context.Context, assigns ...Assignment) (*Instance, error) {
	if qs.err != nil {
		return nil, qs.err
	}
	return qs.db.create(ctx, qs.model, assigns)
}

// BulkCreate validates every row up front, then inserts them inside one
// transaction: any validation or storage failure leaves nothing behind.
func (qs *QuerySet) BulkCreate(ctx context.Context, rows ...[]Assignment) ([]*Instance, error) {
	if qs.err != nil {
		return nil, qs.err
	}
	m := qs.model
	now := time.Now().UTC()

	// Defaulting and validation run independently per row, before any
	// insert is attempted.
	prepared := make([]map[string]any, 0, len(rows))
	for _, assigns := range rows {
		values, err := qs.db.prepareCreate(m, assigns, now)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, values)
	}

	tx, err := qs.db.storage.BeginTx(ctx)
	if err != nil {
		return nil, errs.WrapStorage("bulk_create", m.Name, err)
	}
	defer func() { _ = tx.RollbackIfNotCommit() }()

	out := make([]*Instance, 0, len(prepared))
	for _, values := range prepared {
		inst, err := qs.db.insertRow(ctx, tx, m, values)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := tx.Commit(); err != nil {
		return nil, errs.WrapStorage("bulk_create", m.Name, err)
	}
	qs.db.logger.Debug("bulk create committed",
		zap.String("model", m.Name), zap.Int("rows", len(out)))
	return out, nil
}

// Update applies the assignments to every matching row inside one
// transaction and returns the affected count. Auto-now fields are stamped.
// Filters that cross a relationship are not supported on writes.
func (qs *QuerySet) Update(ctx context.Context, assigns ...Assignment) (int64, error) {
	if qs.err != nil {
		return 0, qs.err
	}
	values, err := qs.db.coerceAssignments(qs.model, assigns, true)
	if err != nil {
		return 0, err
	}
	where, err := qs.writeScope()
	if err != nil {
		return 0, err
	}
	stmt := updateStatement(qs.model, values, where)

	res, err := qs.db.execOneTx(ctx, qs.model, stmt, "update")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete removes every matching row, applying referential actions, all in
// one transaction. It returns the number of rows deleted from this model's
// table (cascaded rows not included).
func (qs *QuerySet) Delete(ctx context.Context) (int64, error) {
	if qs.err != nil {
		return 0, qs.err
	}
	m := qs.model
	where, err := qs.writeScope()
	if err != nil {
		return 0, err
	}

	tx, err := qs.db.storage.BeginTx(ctx)
	if err != nil {
		return 0, errs.WrapStorage("delete", m.Name, err)
	}
	defer func() { _ = tx.RollbackIfNotCommit() }()

	pks, err := qs.db.fetchPKs(ctx, tx, m, where)
	if err != nil {
		return 0, err
	}
	if len(pks) == 0 {
		return 0, tx.Commit()
	}
	affected, err := qs.db.deleteInTx(ctx, tx, m, pks)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errs.WrapStorage("delete", m.Name, err)
	}
	qs.db.logger.Debug("delete committed",
		zap.String("model", m.Name), zap.Int64("rows", affected))
	return affected, nil
}

// GetOrCreate attempts Get; on no match it creates with the exact predicate
// values merged over defaults. The read and the write are two round-trips,
// not atomic: a concurrent creator can win the race, surfacing here as the
// storage layer's duplicate-key ErrIntegrity, which callers treat as "lost
// the race" and may retry with a fresh Get.
func (qs *QuerySet) GetOrCreate(ctx context.Context, defaults []Assignment, conds ...Cond) (*Instance, bool, error) {
	inst, err := qs.Get(ctx, conds...)
	if err == nil {
		return inst, false, nil
	}
	if !errors.Is(err, errs.ErrNoMatch) {
		return nil, false, err
	}
	assigns, err := qs.createAssignments(defaults, conds)
	if err != nil {
		return nil, false, err
	}
	inst, err = qs.db.create(ctx, qs.model, assigns)
	if err != nil {
		return nil, false, err
	}
	return inst, true, nil
}

// UpdateOrCreate is GetOrCreate, except a match is updated with defaults
// instead of returned as-is.
func (qs *QuerySet) UpdateOrCreate(ctx context.Context, defaults []Assignment, conds ...Cond) (*Instance, bool, error) {
	inst, err := qs.Get(ctx, conds...)
	if err == nil {
		if err := inst.Update(ctx, defaults...); err != nil {
			return nil, false, err
		}
		return inst, false, nil
	}
	if !errors.Is(err, errs.ErrNoMatch) {
		return nil, false, err
	}
	assigns, err := qs.createAssignments(defaults, conds)
	if err != nil {
		return nil, false, err
	}
	inst, err = qs.db.create(ctx, qs.model, assigns)
	if err != nil {
		return nil, false, err
	}
	return inst, true, nil
}

// createAssignments merges exact predicate values over defaults. Predicates
// carrying an operator or a relationship hop cannot contribute a create
// value and are rejected.
func (qs *QuerySet) createAssignments(defaults []Assignment, conds []Cond) ([]Assignment, error) {
	merged := make([]Assignment, 0, len(defaults)+len(conds))
	fromConds := make(map[string]bool, len(conds))
	var assigns []Assignment
	for _, cond := range conds {
		p, err := qs.parseKey(cond.Key, cond.Value)
		if err != nil {
			return nil, err
		}
		if p.op != opExact || len(p.hops) > 0 {
			return nil, errs.NewErrInvalidValue(cond.Key,
				"cannot create from a non-exact or cross-relation predicate")
		}
		fromConds[p.field.Name] = true
		assigns = append(assigns, Assign(p.field.Name, cond.Value))
	}
	for _, d := range defaults {
		if !fromConds[d.Field] {
			merged = append(merged, d)
		}
	}
	return append(merged, assigns...), nil
}

// writeScope builds the filter expression for UPDATE/DELETE. Relationship
// hops would need joins, which write statements do not carry.
func (qs *QuerySet) writeScope() (Expression, error) {
	js := newJoinSet(qs.model.TableName)
	where, err := qs.buildWhere(js)
	if err != nil {
		return nil, err
	}
	if len(js.joins) > 0 {
		return nil, errs.NewErrInvalidValue("filter",
			"update and delete cannot filter across relationships")
	}
	return where, nil
}

// ---- engine internals ----

func (db *DB) create(ctx context.Context, m *model.Model, assigns []Assignment) (*Instance, error) {
	values, err := db.prepareCreate(m, assigns, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	tx, err := db.storage.BeginTx(ctx)
	if err != nil {
		return nil, errs.WrapStorage("create", m.Name, err)
	}
	defer func() { _ = tx.RollbackIfNotCommit() }()

	inst, err := db.insertRow(ctx, tx, m, values)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errs.WrapStorage("create", m.Name, err)
	}
	return inst, nil
}

// prepareCreate resolves assignment names, runs defaulting and coerces
// every value. Defaults are produced fresh per call.
func (db *DB) prepareCreate(m *model.Model, assigns []Assignment, now time.Time) (map[string]any, error) {
	supplied := make(map[string]any, len(assigns))
	for _, a := range assigns {
		f, err := m.Resolve(a.Field)
		if err != nil {
			return nil, err
		}
		supplied[f.Name] = a.Value
	}
	filled, err := m.DefaultsForCreate(supplied, now)
	if err != nil {
		return nil, err
	}
	for name, raw := range filled {
		f, _ := m.Fields().Resolve(name)
		typed, err := db.coercer.Coerce(f, raw)
		if err != nil {
			return nil, err
		}
		filled[name] = typed
	}
	return filled, nil
}

func (db *DB) insertRow(ctx context.Context, sess Session, m *model.Model, values map[string]any) (*Instance, error) {
	stmt := insertStatement(m, values)
	res, err := db.exec(ctx, sess, m, stmt)
	if err != nil {
		return nil, errs.WrapStorage("insert", m.Name, err)
	}

	pk := m.PrimaryKey()
	if _, ok := values[pk.Name]; !ok || values[pk.Name] == nil {
		// Backend-assigned integer key.
		if pk.Kind == model.KindInteger || pk.Kind == model.KindBigInteger {
			values[pk.Name] = res.LastInsertID
		}
	}

	inst := newHydratedInstance(db, m, make(map[string]any, len(values)))
	for _, f := range m.Fields().Ordered() {
		if v, ok := values[f.Name]; ok {
			inst.setField(f, v)
		} else {
			inst.fields[f.Name] = nil
		}
	}
	return inst, nil
}

// coerceAssignments validates an update's field/value pairs and, when
// stampAutoNow is set, refreshes every auto-now field.
func (db *DB) coerceAssignments(m *model.Model, assigns []Assignment, stampAutoNow bool) (map[string]any, error) {
	values := make(map[string]any, len(assigns))
	for _, a := range assigns {
		f, err := m.Resolve(a.Field)
		if err != nil {
			return nil, err
		}
		typed, err := db.coercer.Coerce(f, a.Value)
		if err != nil {
			return nil, err
		}
		values[f.Name] = typed
	}
	if stampAutoNow {
		now := time.Now().UTC()
		for _, f := range m.AutoNowFields() {
			if _, ok := values[f.Name]; !ok {
				values[f.Name] = now
			}
		}
	}
	return values, nil
}

// execOneTx wraps a single write statement in its own transaction.
func (db *DB) execOneTx(ctx context.Context, m *model.Model, stmt *Statement, op string) (Result, error) {
	tx, err := db.storage.BeginTx(ctx)
	if err != nil {
		return Result{}, errs.WrapStorage(op, m.Name, err)
	}
	defer func() { _ = tx.RollbackIfNotCommit() }()

	res, err := db.exec(ctx, tx, m, stmt)
	if err != nil {
		return Result{}, errs.WrapStorage(op, m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return Result{}, errs.WrapStorage(op, m.Name, err)
	}
	return res, nil
}

// execInTx is execOneTx discarding the result.
func (db *DB) execInTx(ctx context.Context, m *model.Model, stmt *Statement, op string) error {
	_, err := db.execOneTx(ctx, m, stmt, op)
	return err
}

func (db *DB) fetchOne(ctx context.Context, sess Session, m *model.Model, stmt *Statement) (Row, error) {
	rows, err := db.fetch(ctx, sess, m, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// fetchPKs selects only the primary keys matching where.
func (db *DB) fetchPKs(ctx context.Context, sess Session, m *model.Model, where Expression) ([]any, error) {
	pk := m.PrimaryKey()
	stmt := &Statement{
		Kind:  StmtSelect,
		Table: m.TableName,
		Columns: []ColumnRef{
			{Table: m.TableName, Column: pk.ColName, Alias: pk.ColName},
		},
		Where:  where,
		Limit:  -1,
		Offset: -1,
	}
	rows, err := db.fetch(ctx, sess, m, stmt)
	if err != nil {
		return nil, errs.WrapStorage("select", m.Name, err)
	}
	pks := make([]any, 0, len(rows))
	for _, row := range rows {
		typed, err := db.coercer.Coerce(pk, row[pk.ColName])
		if err != nil {
			return nil, err
		}
		pks = append(pks, typed)
	}
	return pks, nil
}

// materialize turns one raw row into a typed instance: direct columns are
// coerced, relation columns become sparse stand-ins unless eager-loaded, in
// which case the joined column block hydrates a nested instance.
func (db *DB) materialize(row Row, m *model.Model, related []relatedPath) (*Instance, error) {
	names := make([]string, 0, len(related))
	for _, rp := range related {
		names = append(names, rp.name)
	}
	return db.materializeAt(row, m, "", names)
}

func (db *DB) materializeAt(row Row, m *model.Model, prefix string, related []string) (*Instance, error) {
	// Split "album__artist" style paths into this level's relation names
	// and the remainders handed down one level.
	children := make(map[string][]string, len(related))
	for _, r := range related {
		head, rest, found := strings.Cut(r, "__")
		if found {
			children[head] = append(children[head], rest)
		} else if _, ok := children[head]; !ok {
			children[head] = nil
		}
	}

	inst := newHydratedInstance(db, m, make(map[string]any, len(m.Fields().Ordered())))
	for _, f := range m.Fields().Ordered() {
		if f.IsRelation() {
			if rest, eager := children[f.Name]; eager {
				nestedPrefix := prefix + f.Name + "__"
				pkAlias := nestedPrefix + f.Target.PrimaryKey().ColName
				if raw, ok := row[pkAlias]; ok && raw != nil {
					nested, err := db.materializeAt(row, f.Target, nestedPrefix, rest)
					if err != nil {
						return nil, err
					}
					inst.fields[f.Name] = nested
				} else {
					inst.fields[f.Name] = nil
				}
				continue
			}
			raw, ok := row[prefix+f.ColName]
			if !ok || raw == nil {
				inst.fields[f.Name] = nil
				continue
			}
			pk, err := db.coercer.Coerce(f.Target.PrimaryKey(), raw)
			if err != nil {
				return nil, err
			}
			inst.fields[f.Name] = newSparseInstance(db, f.Target, pk)
			continue
		}

		raw, ok := row[prefix+f.ColName]
		if !ok {
			continue
		}
		if raw == nil {
			inst.fields[f.Name] = nil
			continue
		}
		typed, err := db.coercer.Coerce(f, raw)
		if err != nil {
			return nil, err
		}
		inst.fields[f.Name] = typed
	}
	return inst, nil
}

// ---- statement helpers ----

func pkPredicate(m *model.Model, pk any) Expression {
	return Predicate{
		Left:  Column{Table: m.TableName, Name: m.PrimaryKey().ColName},
		Op:    OpEQ,
		Right: Value{Val: pk},
	}
}

func pkInPredicate(m *model.Model, pks []any) Expression {
	return Predicate{
		Left:  Column{Table: m.TableName, Name: m.PrimaryKey().ColName},
		Op:    OpIn,
		Right: Values{Vals: pks},
	}
}

// insertStatement lays the values out in field declaration order so the
// rendered column list is deterministic.
func insertStatement(m *model.Model, values map[string]any) *Statement {
	row := make([]FieldValue, 0, len(values))
	for _, f := range m.Fields().Ordered() {
		if v, ok := values[f.Name]; ok {
			row = append(row, FieldValue{Column: f.ColName, Value: v})
		}
	}
	return &Statement{
		Kind:   StmtInsert,
		Table:  m.TableName,
		Rows:   [][]FieldValue{row},
		Limit:  -1,
		Offset: -1,
	}
}

func updateStatement(m *model.Model, values map[string]any, where Expression) *Statement {
	assigns := make([]FieldValue, 0, len(values))
	for _, f := range m.Fields().Ordered() {
		if v, ok := values[f.Name]; ok {
			assigns = append(assigns, FieldValue{Column: f.ColName, Value: v})
		}
	}
	return &Statement{
		Kind:        StmtUpdate,
		Table:       m.TableName,
		Assignments: assigns,
		Where:       where,
		Limit:       -1,
		Offset:      -1,
	}
}

func deleteStatement(m *model.Model, where Expression) *Statement {
	return &Statement{
		Kind:   StmtDelete,
		Table:  m.TableName,
		Where:  where,
		Limit:  -1,
		Offset: -1,
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		var out int64
		for _, c := range n {
			if c < '0' || c > '9' {
				break
			}
			out = out*10 + int64(c-'0')
		}
		return out
	}
	return 0
}
