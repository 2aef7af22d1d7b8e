package orm

// Cond is one filter condition: a lookup key in the
// <field>[__<relation>]*[__<operator>] grammar and the value to compare
// against. Conds combine by AND inside a Filter or Exclude call.
type Cond struct {
	Key   string
	Value any
}

// C builds a condition: C("album__name__iexact", "x").
func C(key string, value any) Cond {
	return Cond{Key: key, Value: value}
}

// Assignment is one field/value pair for a write: Assign("name", "x").
type Assignment struct {
	Field string
	Value any
}

func Assign(field string, value any) Assignment {
	return Assignment{Field: field, Value: value}
}
