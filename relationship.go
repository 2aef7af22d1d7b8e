package orm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

// Sparse builds a stand-in instance for a known primary key of target.
// Everything but the pk refuses access until Load succeeds.
func (db *DB) Sparse(target *model.Model, pk any) *Instance {
	return newSparseInstance(db, target, pk)
}

// deleteByPKs runs a full delete of the given rows, referential actions
// included, inside one transaction. Cancellation or failure mid-cascade
// rolls the whole thing back.
func (db *DB) deleteByPKs(ctx context.Context, m *model.Model, pks []any) error {
	tx, err := db.storage.BeginTx(ctx)
	if err != nil {
		return errs.WrapStorage("delete", m.Name, err)
	}
	defer func() { _ = tx.RollbackIfNotCommit() }()

	if _, err := db.deleteInTx(ctx, tx, m, pks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.WrapStorage("delete", m.Name, err)
	}
	return nil
}

// deleteInTx applies referential actions for the rows, then deletes them.
func (db *DB) deleteInTx(ctx context.Context, tx Session, m *model.Model, pks []any) (int64, error) {
	seen := map[string]bool{}
	pks = unseen(m, pks, seen)
	if err := db.applyOnDelete(ctx, tx, m, pks, seen); err != nil {
		return 0, err
	}
	res, err := db.exec(ctx, tx, m, deleteStatement(m, pkInPredicate(m, pks)))
	if err != nil {
		return 0, errs.WrapStorage("delete", m.Name, err)
	}
	return res.RowsAffected, nil
}

// applyOnDelete enforces referential actions for deleting the given rows.
// RESTRICT is checked across every referencing relation before anything is
// mutated; CASCADE then recurses one table level per round-trip; SET_NULL
// nulls the referencing columns. All of it runs on the caller's
// transaction.
func (db *DB) applyOnDelete(ctx context.Context, tx Session, m *model.Model, pks []any, seen map[string]bool) error {
	rels := db.r.Referencing(m)

	for _, rel := range rels {
		if rel.Field.OnDelete != model.Restrict {
			continue
		}
		referencing, err := db.referencingPKs(ctx, tx, rel, pks)
		if err != nil {
			return err
		}
		if len(referencing) > 0 {
			db.logger.Debug("delete restricted",
				zap.String("model", m.Name),
				zap.String("referenced_by", rel.Source.Name),
				zap.String("field", rel.Field.Name))
			return errs.NewErrRestricted(rel.Source.Name, rel.Field.Name, m.Name)
		}
	}

	for _, rel := range rels {
		switch rel.Field.OnDelete {
		case model.Cascade:
			referencing, err := db.referencingPKs(ctx, tx, rel, pks)
			if err != nil {
				return err
			}
			referencing = unseen(rel.Source, referencing, seen)
			if len(referencing) == 0 {
				continue
			}
			// The referencing rows carry their own relations; cascade
			// through them before they go away.
			if err := db.applyOnDelete(ctx, tx, rel.Source, referencing, seen); err != nil {
				return err
			}
			db.logger.Debug("cascade delete",
				zap.String("model", rel.Source.Name),
				zap.Int("rows", len(referencing)))
			stmt := deleteStatement(rel.Source, pkInPredicate(rel.Source, referencing))
			if _, err := db.exec(ctx, tx, rel.Source, stmt); err != nil {
				return errs.WrapStorage("cascade delete", rel.Source.Name, err)
			}
		case model.SetNull:
			db.logger.Debug("set null",
				zap.String("model", rel.Source.Name),
				zap.String("field", rel.Field.Name))
			stmt := updateStatement(rel.Source,
				map[string]any{rel.Field.Name: nil},
				fkInPredicate(rel, pks))
			if _, err := db.exec(ctx, tx, rel.Source, stmt); err != nil {
				return errs.WrapStorage("set null", rel.Source.Name, err)
			}
		}
	}
	return nil
}

// referencingPKs returns the primary keys of rel.Source rows whose relation
// column points at any of the given pks.
func (db *DB) referencingPKs(ctx context.Context, tx Session, rel model.Relation, pks []any) ([]any, error) {
	return db.fetchPKs(ctx, tx, rel.Source, fkInPredicate(rel, pks))
}

func fkInPredicate(rel model.Relation, pks []any) Expression {
	return Predicate{
		Left:  Column{Table: rel.Source.TableName, Name: rel.Field.ColName},
		Op:    OpIn,
		Right: Values{Vals: pks},
	}
}

// unseen filters pks already scheduled for deletion, so relation cycles
// terminate.
func unseen(m *model.Model, pks []any, seen map[string]bool) []any {
	out := make([]any, 0, len(pks))
	for _, pk := range pks {
		key := fmt.Sprintf("%s\x00%v", m.Name, pk)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, pk)
	}
	return out
}
