package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

var (
	MySQL    Dialect = &mysqlDialect{}
	SQLite3  Dialect = &sqlite3Dialect{}
	Postgres Dialect = &postgresDialect{}
)

// Dialect captures the differences between backends: quoting, bind
// placeholders, case-insensitive matching, column types and driver error
// classification.
type Dialect interface {
	quoter() byte
	// placeholder renders the idx-th bind marker, 1-based.
	placeholder(idx int) string
	// supportsILike reports native ILIKE; otherwise the builder lowers
	// both sides of the comparison.
	supportsILike() bool
	// columnType renders the DDL type for a column definition.
	columnType(col model.ColumnDef) string
	// autoIncrement is the clause appended to an integer primary key.
	autoIncrement() string
	// translateError classifies driver errors, mapping constraint
	// violations onto the integrity error.
	translateError(err error) error
}

type standardSQL struct{}

func (standardSQL) quoter() byte {
	return '"'
}

func (standardSQL) placeholder(int) string {
	return "?"
}

func (standardSQL) supportsILike() bool {
	return false
}

func (standardSQL) autoIncrement() string {
	return ""
}

func (standardSQL) translateError(err error) error {
	return err
}

func (standardSQL) columnType(col model.ColumnDef) string {
	switch col.Kind {
	case model.KindInteger:
		return "INTEGER"
	case model.KindBigInteger:
		return "BIGINT"
	case model.KindFloat:
		return "DOUBLE PRECISION"
	case model.KindDecimal:
		// Decimals travel as canonical strings; a character column keeps
		// the backend from rounding them.
		return "VARCHAR(64)"
	case model.KindBoolean:
		return "BOOLEAN"
	case model.KindString, model.KindEnum:
		n := col.MaxLength
		if n <= 0 {
			n = 255
		}
		return "VARCHAR(" + strconv.Itoa(n) + ")"
	case model.KindText, model.KindJSON:
		return "TEXT"
	case model.KindDate:
		return "DATE"
	case model.KindDateTime:
		return "TIMESTAMP"
	case model.KindTime:
		return "VARCHAR(32)"
	case model.KindUUID:
		return "VARCHAR(36)"
	case model.KindEmail, model.KindURL:
		return "VARCHAR(255)"
	case model.KindIPAddress:
		return "VARCHAR(45)"
	}
	return "TEXT"
}

type mysqlDialect struct {
	standardSQL
}

func (mysqlDialect) quoter() byte {
	return '`'
}

func (mysqlDialect) autoIncrement() string {
	return " AUTO_INCREMENT"
}

func (mysqlDialect) translateError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062, 1451, 1452, 1557, 1586, 1761, 1762:
			return fmt.Errorf("%w: %s", errs.ErrIntegrity, me.Message)
		}
	}
	return err
}

type sqlite3Dialect struct {
	standardSQL
}

func (sqlite3Dialect) quoter() byte {
	return '`'
}

func (d sqlite3Dialect) columnType(col model.ColumnDef) string {
	// An integer primary key must be INTEGER, not BIGINT, to alias the
	// rowid and receive backend-assigned keys.
	if col.Kind == model.KindBigInteger {
		return "INTEGER"
	}
	return d.standardSQL.columnType(col)
}

func (sqlite3Dialect) translateError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s", errs.ErrIntegrity, se.Error())
	}
	return err
}

type postgresDialect struct {
	standardSQL
}

func (postgresDialect) placeholder(idx int) string {
	return "$" + strconv.Itoa(idx)
}

func (postgresDialect) supportsILike() bool {
	return true
}

func (postgresDialect) autoIncrement() string {
	return " GENERATED BY DEFAULT AS IDENTITY"
}

func (postgresDialect) columnType(col model.ColumnDef) string {
	if col.Kind == model.KindJSON {
		return "JSONB"
	}
	return standardSQL{}.columnType(col)
}

func (postgresDialect) translateError(err error) error {
	var pe *pgconn.PgError
	if errors.As(err, &pe) && strings.HasPrefix(pe.Code, "23") {
		return fmt.Errorf("%w: %s", errs.ErrIntegrity, pe.Message)
	}
	return err
}
