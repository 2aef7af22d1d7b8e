package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the whole module. Constructors below wrap these with
// detail, so callers can match with errors.Is regardless of the message.
var (
	// ErrConfiguration marks a bad model or field declaration. Detected at
	// declaration time or on first compile; never retryable.
	ErrConfiguration = errors.New("orm: invalid configuration")

	// ErrUnknownField marks a predicate, order or assignment key that does
	// not resolve through the field registry.
	ErrUnknownField = errors.New("orm: unknown field")

	// ErrValidation marks a value rejected during coercion for a create or
	// an update.
	ErrValidation = errors.New("orm: validation failed")

	// ErrNoMatch is returned by Get when zero rows match.
	ErrNoMatch = errors.New("orm: no rows match")

	// ErrMultipleMatches is returned by Get when more than one row matches.
	ErrMultipleMatches = errors.New("orm: multiple rows match")

	// ErrDoesNotExist is returned by Load when the referenced row is gone.
	ErrDoesNotExist = errors.New("orm: referenced row does not exist")

	// ErrIntegrity marks a RESTRICT violation or a storage-level constraint
	// violation, e.g. a duplicate key raced in by a concurrent writer.
	ErrIntegrity = errors.New("orm: integrity violation")

	// ErrNotLoaded marks a field access on a sparse relation that has not
	// been loaded yet.
	ErrNotLoaded = errors.New("orm: relation not loaded")

	// ErrInvalidArgument marks a caller bug such as a negative limit.
	ErrInvalidArgument = errors.New("orm: invalid argument")

	// ErrInstanceDeleted marks reuse of an instance after Delete.
	ErrInstanceDeleted = errors.New("orm: instance already deleted")
)

func NewErrUnknownField(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownField, name)
}

func NewErrUnknownOperator(op string) error {
	return fmt.Errorf("%w: unrecognized operator %q", ErrInvalidArgument, op)
}

func NewErrNotRelation(model, field string) error {
	return fmt.Errorf("%w: %s.%s is not a relationship field", ErrUnknownField, model, field)
}

func NewErrDuplicateField(name string) error {
	return fmt.Errorf("%w: field %q declared twice", ErrConfiguration, name)
}

func NewErrMultiplePrimaryKeys(field string) error {
	return fmt.Errorf("%w: field %q declares a second primary key", ErrConfiguration, field)
}

func NewErrNoPrimaryKey(model string) error {
	return fmt.Errorf("%w: model %q declares no primary key", ErrConfiguration, model)
}

func NewErrSetNullOnNotNull(field string) error {
	return fmt.Errorf("%w: field %q uses SET_NULL but does not allow null", ErrConfiguration, field)
}

func NewErrDuplicateModel(name string) error {
	return fmt.Errorf("%w: model %q already defined", ErrConfiguration, name)
}

func NewErrUnknownModel(name string) error {
	return fmt.Errorf("%w: model %q is not defined", ErrConfiguration, name)
}

// NewErrMissingFields reports every required field left unset after
// defaulting, not just the first one.
func NewErrMissingFields(model string, fields []string) error {
	return fmt.Errorf("%w: model %q missing required fields: %s",
		ErrValidation, model, strings.Join(fields, ", "))
}

func NewErrInvalidValue(field string, reason string) error {
	return fmt.Errorf("%w: field %q: %s", ErrValidation, field, reason)
}

func NewErrNegativeLimit(n int) error {
	return fmt.Errorf("%w: negative limit %d", ErrInvalidArgument, n)
}

func NewErrNegativeOffset(n int) error {
	return fmt.Errorf("%w: negative offset %d", ErrInvalidArgument, n)
}

func NewErrRestricted(model, field, target string) error {
	return fmt.Errorf("%w: delete on %q restricted by %s.%s", ErrIntegrity, target, model, field)
}

// WrapStorage attaches query context to a storage-layer error. The original
// error stays reachable through errors.Is / errors.As.
func WrapStorage(op, model string, err error) error {
	return fmt.Errorf("orm: %s %s: %w", op, model, err)
}
