package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	orm "github.com/calyxdb/orm"
)

func TestBuildQuery_Select(t *testing.T) {
	testCases := []struct {
		name    string
		dialect Dialect
		stmt    *orm.Statement

		wantQuery string
		wantArgs  []any
	}{
		{
			name:    "projection only",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "artist",
				Columns: []orm.ColumnRef{
					{Table: "artist", Column: "id", Alias: "id"},
					{Table: "artist", Column: "name", Alias: "name"},
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `artist`.`id` AS `id`,`artist`.`name` AS `name` FROM `artist`;",
		},
		{
			name:    "where eq",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "artist",
				Columns: []orm.ColumnRef{
					{Table: "artist", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left:  orm.Column{Table: "artist", Name: "name"},
					Op:    orm.OpEQ,
					Right: orm.Value{Val: "Holst"},
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `artist`.`id` AS `id` FROM `artist` WHERE `artist`.`name` = ?;",
			wantArgs:  []any{"Holst"},
		},
		{
			name:    "nested predicates parenthesize",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left: orm.Predicate{
						Left:  orm.Column{Table: "t", Name: "a"},
						Op:    orm.OpEQ,
						Right: orm.Value{Val: 1},
					},
					Op: orm.OpAnd,
					Right: orm.Predicate{
						Left:  orm.Column{Table: "t", Name: "b"},
						Op:    orm.OpGT,
						Right: orm.Value{Val: 2},
					},
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `t`.`id` AS `id` FROM `t` WHERE (`t`.`a` = ?) AND (`t`.`b` > ?);",
			wantArgs:  []any{1, 2},
		},
		{
			name:    "not negates a group",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Not(orm.Predicate{
					Left:  orm.Column{Table: "t", Name: "a"},
					Op:    orm.OpEQ,
					Right: orm.Value{Val: 1},
				}),
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `t`.`id` AS `id` FROM `t` WHERE NOT (`t`.`a` = ?);",
			wantArgs:  []any{1},
		},
		{
			name:    "is null has no bind arg",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left: orm.Column{Table: "t", Name: "bio"},
					Op:   orm.OpIsNull,
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `t`.`id` AS `id` FROM `t` WHERE `t`.`bio` IS NULL;",
		},
		{
			name:    "in list",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left:  orm.Column{Table: "t", Name: "id"},
					Op:    orm.OpIn,
					Right: orm.Values{Vals: []any{1, 2, 3}},
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `t`.`id` AS `id` FROM `t` WHERE `t`.`id` IN (?,?,?);",
			wantArgs:  []any{1, 2, 3},
		},
		{
			name:    "empty in matches nothing",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left:  orm.Column{Table: "t", Name: "id"},
					Op:    orm.OpIn,
					Right: orm.Values{},
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `t`.`id` AS `id` FROM `t` WHERE `t`.`id` IN (NULL);",
		},
		{
			name:    "like with escape clause",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left:   orm.Column{Table: "t", Name: "name"},
					Op:     orm.OpLike,
					Right:  orm.Value{Val: `%50\%%`},
					Escape: `\`,
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `t`.`id` AS `id` FROM `t` WHERE `t`.`name` LIKE ? ESCAPE '\\';",
			wantArgs:  []any{`%50\%%`},
		},
		{
			name:    "ilike lowers both sides without native support",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left:  orm.Column{Table: "t", Name: "name"},
					Op:    orm.OpILike,
					Right: orm.Value{Val: "%x%"},
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: "SELECT `t`.`id` AS `id` FROM `t` WHERE LOWER(`t`.`name`) LIKE LOWER(?);",
			wantArgs:  []any{"%x%"},
		},
		{
			name:    "ilike stays native on postgres",
			dialect: Postgres,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left:  orm.Column{Table: "t", Name: "name"},
					Op:    orm.OpILike,
					Right: orm.Value{Val: "%x%"},
				},
				Limit:  -1,
				Offset: -1,
			},
			wantQuery: `SELECT "t"."id" AS "id" FROM "t" WHERE "t"."name" ILIKE $1;`,
			wantArgs:  []any{"%x%"},
		},
		{
			name:    "joins order limit offset",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "track",
				Columns: []orm.ColumnRef{
					{Table: "track", Column: "id", Alias: "id"},
					{Table: "album", Column: "name", Alias: "album__name"},
				},
				Joins: []orm.Join{
					{Table: "album", Alias: "album", FromTable: "track", FromColumn: "album", ToColumn: "id"},
				},
				OrderBy: []orm.Ordering{
					{Table: "track", Column: "title", Desc: true},
					{Table: "track", Column: "id"},
				},
				Limit:  10,
				Offset: 20,
			},
			wantQuery: "SELECT `track`.`id` AS `id`,`album`.`name` AS `album__name`" +
				" FROM `track` LEFT JOIN `album` AS `album` ON `track`.`album` = `album`.`id`" +
				" ORDER BY `track`.`title` DESC,`track`.`id` ASC LIMIT ? OFFSET ?;",
			wantArgs: []any{10, 20},
		},
		{
			name:    "postgres numbers every placeholder",
			dialect: Postgres,
			stmt: &orm.Statement{
				Kind:  orm.StmtSelect,
				Table: "t",
				Columns: []orm.ColumnRef{
					{Table: "t", Column: "id", Alias: "id"},
				},
				Where: orm.Predicate{
					Left:  orm.Column{Table: "t", Name: "name"},
					Op:    orm.OpEQ,
					Right: orm.Value{Val: "x"},
				},
				Limit:  5,
				Offset: 10,
			},
			wantQuery: `SELECT "t"."id" AS "id" FROM "t" WHERE "t"."name" = $1 LIMIT $2 OFFSET $3;`,
			wantArgs:  []any{"x", 5, 10},
		},
		{
			name:    "count only",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:      orm.StmtSelect,
				Table:     "artist",
				CountOnly: true,
				Limit:     -1,
				Offset:    -1,
			},
			wantQuery: "SELECT COUNT(*) AS `count` FROM `artist`;",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			query, args, err := buildQuery(tc.dialect, tc.stmt)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantQuery, query)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestBuildQuery_Writes(t *testing.T) {
	testCases := []struct {
		name    string
		dialect Dialect
		stmt    *orm.Statement

		wantQuery string
		wantArgs  []any
	}{
		{
			name:    "single row insert",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtInsert,
				Table: "artist",
				Rows: [][]orm.FieldValue{
					{{Column: "name", Value: "Holst"}, {Column: "bio", Value: nil}},
				},
			},
			wantQuery: "INSERT INTO `artist` (`name`,`bio`) VALUES (?,?);",
			wantArgs:  []any{"Holst", nil},
		},
		{
			name:    "multi row insert",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtInsert,
				Table: "artist",
				Rows: [][]orm.FieldValue{
					{{Column: "name", Value: "a"}},
					{{Column: "name", Value: "b"}},
				},
			},
			wantQuery: "INSERT INTO `artist` (`name`) VALUES (?),(?);",
			wantArgs:  []any{"a", "b"},
		},
		{
			name:    "update with where",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtUpdate,
				Table: "artist",
				Assignments: []orm.FieldValue{
					{Column: "name", Value: "x"},
					{Column: "bio", Value: nil},
				},
				Where: orm.Predicate{
					Left:  orm.Column{Table: "artist", Name: "id"},
					Op:    orm.OpEQ,
					Right: orm.Value{Val: 1},
				},
			},
			wantQuery: "UPDATE `artist` SET `name` = ?,`bio` = ? WHERE `artist`.`id` = ?;",
			wantArgs:  []any{"x", nil, 1},
		},
		{
			name:    "delete with in",
			dialect: SQLite3,
			stmt: &orm.Statement{
				Kind:  orm.StmtDelete,
				Table: "artist",
				Where: orm.Predicate{
					Left:  orm.Column{Table: "artist", Name: "id"},
					Op:    orm.OpIn,
					Right: orm.Values{Vals: []any{1, 2}},
				},
			},
			wantQuery: "DELETE FROM `artist` WHERE `artist`.`id` IN (?,?);",
			wantArgs:  []any{1, 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			query, args, err := buildQuery(tc.dialect, tc.stmt)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantQuery, query)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestBuildQuery_InsertWithoutRows(t *testing.T) {
	_, _, err := buildQuery(SQLite3, &orm.Statement{Kind: orm.StmtInsert, Table: "t"})
	assert.Error(t, err)
}
