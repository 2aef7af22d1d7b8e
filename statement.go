package orm

// Statement is the backend-neutral form a QuerySet compiles to. The storage
// collaborator renders and executes it; the core never emits SQL text
// itself.
type Statement struct {
	Kind  StmtKind
	Table string

	// Reads.
	Columns   []ColumnRef
	CountOnly bool
	Joins     []Join
	Where     Expression
	OrderBy   []Ordering
	Limit     int // -1 when unset
	Offset    int // -1 when unset

	// Writes.
	Assignments []FieldValue  // UPDATE ... SET
	Rows        [][]FieldValue // INSERT rows, column order fixed per row
}

type StmtKind uint8

const (
	StmtSelect StmtKind = iota + 1
	StmtInsert
	StmtUpdate
	StmtDelete
)

func (k StmtKind) String() string {
	switch k {
	case StmtSelect:
		return "SELECT"
	case StmtInsert:
		return "INSERT"
	case StmtUpdate:
		return "UPDATE"
	case StmtDelete:
		return "DELETE"
	}
	return "UNKNOWN"
}

// ColumnRef is one projected column. Table is the physical table or join
// alias it reads from; Alias is the name the raw row carries it under.
type ColumnRef struct {
	Table  string
	Column string
	Alias  string
}

// Join is a single relationship hop: LEFT JOIN Table AS Alias ON
// FromTable.FromColumn = Alias.ToColumn. Left joins keep owning rows whose
// nullable relation column is null.
type Join struct {
	Table      string
	Alias      string
	FromTable  string
	FromColumn string
	ToColumn   string
}

type Ordering struct {
	Table  string
	Column string
	Desc   bool
}

// FieldValue is one column/value assignment in a write statement.
type FieldValue struct {
	Column string
	Value  any
}

// Expression is a node of the filter tree. It is a marker interface, the
// same shape the predicate tree takes everywhere in this package.
type Expression interface {
	expr()
}

// Column references a column inside the filter tree. Table carries the join
// alias for predicates that crossed a relationship.
type Column struct {
	Table string
	Name  string
}

func (Column) expr() {}

// Value is a single bind parameter.
type Value struct {
	Val any
}

func (Value) expr() {}

// Values is a bind-parameter list, used by IN.
type Values struct {
	Vals []any
}

func (Values) expr() {}

// Predicate is a binary (or unary, for NOT / IS NULL) node combining
// expressions with an operator.
type Predicate struct {
	Left  Expression
	Op    Op
	Right Expression

	// Escape names the escape character when Op is a LIKE variant whose
	// pattern had literal % or _ escaped.
	Escape string
}

func (Predicate) expr() {}

// And combines two predicates.
func (p Predicate) And(r Predicate) Predicate {
	return Predicate{Left: p, Op: OpAnd, Right: r}
}

// Or combines two predicates.
func (p Predicate) Or(r Predicate) Predicate {
	return Predicate{Left: p, Op: OpOr, Right: r}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return Predicate{Op: OpNot, Right: p}
}

// Op is a backend-neutral comparison or logical operator.
type Op string

const (
	OpEQ      Op = "="
	OpLT      Op = "<"
	OpLTE     Op = "<="
	OpGT      Op = ">"
	OpGTE     Op = ">="
	OpIn      Op = "IN"
	OpLike    Op = "LIKE"
	OpILike   Op = "ILIKE"
	OpAnd     Op = "AND"
	OpOr      Op = "OR"
	OpNot     Op = "NOT"
	OpIsNull  Op = "IS NULL"
)

func (o Op) String() string {
	return string(o)
}
