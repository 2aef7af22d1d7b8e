package orm

import (
	"strings"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

// operator is one recognized lookup operator from the filter key grammar.
type operator string

const (
	opExact     operator = "exact"
	opIExact    operator = "iexact"
	opContains  operator = "contains"
	opIContains operator = "icontains"
	opLt        operator = "lt"
	opLte       operator = "lte"
	opGt        operator = "gt"
	opGte       operator = "gte"
	opIn        operator = "in"
)

var operators = map[string]operator{
	"exact":     opExact,
	"iexact":    opIExact,
	"contains":  opContains,
	"icontains": opIContains,
	"lt":        opLt,
	"lte":       opLte,
	"gt":        opGt,
	"gte":       opGte,
	"in":        opIn,
}

// likeEscapeChars are the pattern metacharacters escaped inside contains
// lookups, so a literal % or _ in the needle matches itself.
var likeEscapeChars = []string{"%", "_"}

// fieldPredicate is one parsed filter condition: the relationship hops
// walked, the terminal field, the operator and the comparison value.
type fieldPredicate struct {
	hops  []*model.Field
	field *model.Field
	op    operator
	value any
}

// predicateGroup is the set of conditions from one Filter or Exclude call.
// Conditions AND together; an exclude group is negated as a whole.
type predicateGroup struct {
	exclude bool
	preds   []fieldPredicate
}

type orderKey struct {
	field *model.Field
	desc  bool
}

// relatedPath is a parsed select_related entry.
type relatedPath struct {
	name string // the raw key, hops joined by "__"
	hops []*model.Field
}

// QuerySet is an immutable, chainable query specification. Every chaining
// call validates its input eagerly, then returns a copy; the receiver is
// never mutated, so QuerySets are freely shareable. The first validation
// error is latched and surfaced by the terminal operations before anything
// touches storage.
type QuerySet struct {
	db    *DB
	model *model.Model

	groups  []predicateGroup
	orderBy []orderKey
	limit   int
	offset  int
	related []relatedPath
	search  []string

	err error
}

// clone copies the queryset. Slices are re-sliced full-capacity so appends
// on the copy cannot reach back into the receiver.
func (qs *QuerySet) clone() *QuerySet {
	c := *qs
	c.groups = qs.groups[:len(qs.groups):len(qs.groups)]
	c.orderBy = qs.orderBy[:len(qs.orderBy):len(qs.orderBy)]
	c.related = qs.related[:len(qs.related):len(qs.related)]
	c.search = qs.search[:len(qs.search):len(qs.search)]
	return &c
}

func (qs *QuerySet) fail(err error) *QuerySet {
	if qs.err != nil {
		return qs
	}
	c := qs.clone()
	c.err = err
	return c
}

// Model returns the queryset's target model.
func (qs *QuerySet) Model() *model.Model {
	return qs.model
}

// Filter adds conditions combined by AND, both within this call and with
// every previously chained call.
func (qs *QuerySet) Filter(conds ...Cond) *QuerySet {
	return qs.filter(false, conds)
}

// Exclude adds conditions whose conjunction is negated as one group. Only
// this call's group is negated; other chained groups are unaffected.
func (qs *QuerySet) Exclude(conds ...Cond) *QuerySet {
	return qs.filter(true, conds)
}

func (qs *QuerySet) filter(exclude bool, conds []Cond) *QuerySet {
	if qs.err != nil {
		return qs
	}
	if len(conds) == 0 {
		return qs
	}
	group := predicateGroup{exclude: exclude, preds: make([]fieldPredicate, 0, len(conds))}
	for _, cond := range conds {
		p, err := qs.parseKey(cond.Key, cond.Value)
		if err != nil {
			return qs.fail(err)
		}
		group.preds = append(group.preds, p)
	}
	c := qs.clone()
	c.groups = append(c.groups, group)
	return c
}

// OrderBy replaces the ordering. Keys are bare field names with an optional
// leading - for descending; earlier keys win, later keys break ties.
func (qs *QuerySet) OrderBy(keys ...string) *QuerySet {
	if qs.err != nil {
		return qs
	}
	orderBy := make([]orderKey, 0, len(keys))
	for _, key := range keys {
		desc := strings.HasPrefix(key, "-")
		name := strings.TrimPrefix(key, "-")
		f, err := qs.model.Resolve(name)
		if err != nil {
			return qs.fail(err)
		}
		orderBy = append(orderBy, orderKey{field: f, desc: desc})
	}
	c := qs.clone()
	c.orderBy = orderBy
	return c
}

// Limit caps the result set. Negative values are rejected.
func (qs *QuerySet) Limit(n int) *QuerySet {
	if qs.err != nil {
		return qs
	}
	if n < 0 {
		return qs.fail(errs.NewErrNegativeLimit(n))
	}
	c := qs.clone()
	c.limit = n
	return c
}

// Offset skips leading rows. Negative values are rejected.
func (qs *QuerySet) Offset(n int) *QuerySet {
	if qs.err != nil {
		return qs
	}
	if n < 0 {
		return qs.fail(errs.NewErrNegativeOffset(n))
	}
	c := qs.clone()
	c.offset = n
	return c
}

// SelectRelated marks relationships to eager-load in the same fetch.
// Multi-hop paths like "album__artist" hydrate every model on the path.
func (qs *QuerySet) SelectRelated(names ...string) *QuerySet {
	if qs.err != nil {
		return qs
	}
	c := qs.clone()
	for _, name := range names {
		rp, err := qs.parseRelatedPath(name)
		if err != nil {
			return qs.fail(err)
		}
		c.related = appendRelated(c.related, rp)
	}
	return c
}

// Search adds a case-insensitive substring match ORed across every string
// and text field. An empty term is a no-op.
func (qs *QuerySet) Search(term string) *QuerySet {
	if qs.err != nil || term == "" {
		return qs
	}
	c := qs.clone()
	c.search = append(c.search, term)
	return c
}

func appendRelated(related []relatedPath, rp relatedPath) []relatedPath {
	for _, existing := range related {
		if existing.name == rp.name {
			return related
		}
	}
	return append(related, rp)
}

// parseKey splits a lookup key on "__", walks relationship hops through the
// registry and resolves the terminal field and operator. Validation happens
// here, at build time, not at execution time.
func (qs *QuerySet) parseKey(key string, value any) (fieldPredicate, error) {
	parts := strings.Split(key, "__")

	op := opExact
	if len(parts) > 1 {
		if known, ok := operators[parts[len(parts)-1]]; ok {
			op = known
			parts = parts[:len(parts)-1]
		}
	}
	if len(parts) == 0 || parts[0] == "" {
		return fieldPredicate{}, errs.NewErrUnknownField(key)
	}

	cur := qs.model
	hops := make([]*model.Field, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		f, err := cur.Resolve(part)
		if err != nil {
			return fieldPredicate{}, err
		}
		if !f.IsRelation() {
			return fieldPredicate{}, errs.NewErrNotRelation(cur.Name, part)
		}
		hops = append(hops, f)
		cur = f.Target
	}

	terminal, err := cur.Resolve(parts[len(parts)-1])
	if err != nil {
		return fieldPredicate{}, err
	}
	return fieldPredicate{hops: hops, field: terminal, op: op, value: value}, nil
}

func (qs *QuerySet) parseRelatedPath(name string) (relatedPath, error) {
	parts := strings.Split(name, "__")
	cur := qs.model
	hops := make([]*model.Field, 0, len(parts))
	for _, part := range parts {
		f, err := cur.Resolve(part)
		if err != nil {
			return relatedPath{}, err
		}
		if !f.IsRelation() {
			return relatedPath{}, errs.NewErrNotRelation(cur.Name, part)
		}
		hops = append(hops, f)
		cur = f.Target
	}
	return relatedPath{name: name, hops: hops}, nil
}
