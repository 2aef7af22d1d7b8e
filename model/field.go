package model

// Kind enumerates the semantic column types a field can carry.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindBigInteger
	KindFloat
	KindDecimal
	KindBoolean
	KindString
	KindText
	KindDate
	KindDateTime
	KindTime
	KindUUID
	KindEmail
	KindURL
	KindIPAddress
	KindEnum
	KindJSON
	KindForeignKey
	KindOneToOne
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBigInteger:
		return "biginteger"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindTime:
		return "time"
	case KindUUID:
		return "uuid"
	case KindEmail:
		return "email"
	case KindURL:
		return "url"
	case KindIPAddress:
		return "ipaddress"
	case KindEnum:
		return "enum"
	case KindJSON:
		return "json"
	case KindForeignKey:
		return "foreignkey"
	case KindOneToOne:
		return "onetoone"
	}
	return "unknown"
}

// OnDelete is the referential action applied to rows referencing a deleted
// row.
type OnDelete uint8

const (
	Cascade OnDelete = iota + 1
	Restrict
	SetNull
)

// Field describes one column: its semantic type, constraints and, for
// relationship kinds, the target model and referential action.
// Fields are read-only once registered on a model.
type Field struct {
	Name    string
	ColName string
	Kind    Kind

	PrimaryKey bool
	AllowNull  bool
	AllowBlank bool
	Index      bool
	Unique     bool

	HasDefault  bool
	Default     any
	DefaultFunc func() any

	// String/Text
	MaxLength int
	// Enum
	Choices []string
	// DateTime
	AutoNow    bool
	AutoNowAdd bool

	// Relationship kinds only.
	Target   *Model
	OnDelete OnDelete
}

// IsRelation reports whether the field is a foreign key or one-to-one.
func (f *Field) IsRelation() bool {
	return f.Kind == KindForeignKey || f.Kind == KindOneToOne
}

// Required reports whether a value must be present on create once
// defaulting has run. Auto-increment style primary keys are assigned by the
// backend and never required.
func (f *Field) Required() bool {
	if f.AllowNull || f.AllowBlank || f.HasDefault || f.DefaultFunc != nil {
		return false
	}
	if f.AutoNow || f.AutoNowAdd {
		return false
	}
	if f.PrimaryKey && (f.Kind == KindInteger || f.Kind == KindBigInteger) {
		return false
	}
	return true
}

// FieldOption mutates a field during construction.
type FieldOption func(f *Field)

func PrimaryKey() FieldOption {
	return func(f *Field) {
		f.PrimaryKey = true
	}
}

func Nullable() FieldOption {
	return func(f *Field) {
		f.AllowNull = true
	}
}

func Blank() FieldOption {
	return func(f *Field) {
		f.AllowBlank = true
	}
}

func Default(val any) FieldOption {
	return func(f *Field) {
		f.HasDefault = true
		f.Default = val
	}
}

// DefaultFunc registers a zero-arg producer, invoked once per create.
func DefaultFunc(fn func() any) FieldOption {
	return func(f *Field) {
		f.DefaultFunc = fn
	}
}

// ColumnName overrides the physical column name, which otherwise matches
// the field name.
func ColumnName(col string) FieldOption {
	return func(f *Field) {
		f.ColName = col
	}
}

func Index() FieldOption {
	return func(f *Field) {
		f.Index = true
	}
}

func Unique() FieldOption {
	return func(f *Field) {
		f.Unique = true
	}
}

// AutoNow stamps the field on every create and update.
func AutoNow() FieldOption {
	return func(f *Field) {
		f.AutoNow = true
	}
}

// AutoNowAdd stamps the field once, at creation time.
func AutoNowAdd() FieldOption {
	return func(f *Field) {
		f.AutoNowAdd = true
	}
}

func newField(name string, kind Kind, opts ...FieldOption) *Field {
	f := &Field{
		Name:    name,
		ColName: name,
		Kind:    kind,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func Integer(name string, opts ...FieldOption) *Field {
	return newField(name, KindInteger, opts...)
}

func BigInteger(name string, opts ...FieldOption) *Field {
	return newField(name, KindBigInteger, opts...)
}

func Float(name string, opts ...FieldOption) *Field {
	return newField(name, KindFloat, opts...)
}

func Decimal(name string, opts ...FieldOption) *Field {
	return newField(name, KindDecimal, opts...)
}

func Boolean(name string, opts ...FieldOption) *Field {
	return newField(name, KindBoolean, opts...)
}

// String requires an explicit max length, mirroring the varchar column it
// compiles to.
func String(name string, maxLength int, opts ...FieldOption) *Field {
	f := newField(name, KindString, opts...)
	f.MaxLength = maxLength
	return f
}

func Text(name string, opts ...FieldOption) *Field {
	return newField(name, KindText, opts...)
}

func Date(name string, opts ...FieldOption) *Field {
	return newField(name, KindDate, opts...)
}

func DateTime(name string, opts ...FieldOption) *Field {
	return newField(name, KindDateTime, opts...)
}

func Time(name string, opts ...FieldOption) *Field {
	return newField(name, KindTime, opts...)
}

func UUID(name string, opts ...FieldOption) *Field {
	return newField(name, KindUUID, opts...)
}

func Email(name string, opts ...FieldOption) *Field {
	return newField(name, KindEmail, opts...)
}

func URL(name string, opts ...FieldOption) *Field {
	return newField(name, KindURL, opts...)
}

func IPAddress(name string, opts ...FieldOption) *Field {
	return newField(name, KindIPAddress, opts...)
}

func Enum(name string, choices []string, opts ...FieldOption) *Field {
	f := newField(name, KindEnum, opts...)
	f.Choices = choices
	return f
}

func JSON(name string, opts ...FieldOption) *Field {
	return newField(name, KindJSON, opts...)
}

// ForeignKey declares a relation to target. The column stores the target's
// primary key.
func ForeignKey(name string, target *Model, onDelete OnDelete, opts ...FieldOption) *Field {
	f := newField(name, KindForeignKey, opts...)
	f.Target = target
	f.OnDelete = onDelete
	return f
}

// OneToOne is a foreign key with a uniqueness constraint on the column.
func OneToOne(name string, target *Model, onDelete OnDelete, opts ...FieldOption) *Field {
	f := newField(name, KindOneToOne, opts...)
	f.Target = target
	f.OnDelete = onDelete
	f.Unique = true
	return f
}
