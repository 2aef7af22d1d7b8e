// Package validate is the default validation collaborator: it coerces raw
// values (caller input or driver output) into the typed value a field
// stores, enforcing the field's constraints.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/mail"
	"net/netip"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

// Validator implements model.Coercer.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

var _ model.Coercer = &Validator{}

// Coerce turns raw into the typed value for f, or reports the offending
// constraint. A nil raw is accepted only on nullable fields.
func (v *Validator) Coerce(f *model.Field, raw any) (any, error) {
	if raw == nil {
		if f.AllowNull || f.PrimaryKey {
			return nil, nil
		}
		return nil, errs.NewErrInvalidValue(f.Name, "null not allowed")
	}

	switch f.Kind {
	case model.KindInteger, model.KindBigInteger:
		return coerceInt(f, raw)
	case model.KindFloat:
		return coerceFloat(f, raw)
	case model.KindDecimal:
		return coerceDecimal(f, raw)
	case model.KindBoolean:
		return coerceBool(f, raw)
	case model.KindString:
		s, err := coerceString(f, raw)
		if err != nil {
			return nil, err
		}
		if f.MaxLength > 0 && len(s) > f.MaxLength {
			return nil, errs.NewErrInvalidValue(f.Name,
				fmt.Sprintf("length %d exceeds max length %d", len(s), f.MaxLength))
		}
		return s, nil
	case model.KindText:
		return coerceString(f, raw)
	case model.KindDate:
		return coerceTime(f, raw, "2006-01-02")
	case model.KindDateTime:
		return coerceTime(f, raw, time.RFC3339)
	case model.KindTime:
		return coerceTime(f, raw, "15:04:05")
	case model.KindUUID:
		return coerceUUID(f, raw)
	case model.KindEmail:
		s, err := coerceString(f, raw)
		if err != nil {
			return nil, err
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not a valid email address")
		}
		return s, nil
	case model.KindURL:
		s, err := coerceString(f, raw)
		if err != nil {
			return nil, err
		}
		if _, err := url.ParseRequestURI(s); err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not a valid URL")
		}
		return s, nil
	case model.KindIPAddress:
		s, err := coerceString(f, raw)
		if err != nil {
			return nil, err
		}
		if _, err := netip.ParseAddr(s); err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not a valid IP address")
		}
		return s, nil
	case model.KindEnum:
		s, err := coerceString(f, raw)
		if err != nil {
			return nil, err
		}
		for _, c := range f.Choices {
			if s == c {
				return s, nil
			}
		}
		return nil, errs.NewErrInvalidValue(f.Name, fmt.Sprintf("%q is not a valid choice", s))
	case model.KindJSON:
		return coerceJSON(f, raw)
	case model.KindForeignKey, model.KindOneToOne:
		return v.coerceRelation(f, raw)
	}
	return nil, errs.NewErrInvalidValue(f.Name, "unsupported field kind")
}

// coerceRelation stores relations by target primary key. Instances collapse
// to their pk; raw values are coerced against the target's pk field.
func (v *Validator) coerceRelation(f *model.Field, raw any) (any, error) {
	if pker, ok := raw.(model.PKer); ok {
		raw = pker.PK()
		if raw == nil {
			return nil, errs.NewErrInvalidValue(f.Name, "related instance has no primary key")
		}
	}
	return v.Coerce(f.Target.PrimaryKey(), raw)
}

func coerceInt(f *model.Field, raw any) (any, error) {
	switch n := raw.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, errs.NewErrInvalidValue(f.Name, "integer overflow")
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return nil, errs.NewErrInvalidValue(f.Name, "not a whole number")
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not an integer")
		}
		return i, nil
	case []byte:
		return coerceInt(f, string(n))
	}
	return nil, errs.NewErrInvalidValue(f.Name, "not an integer")
}

func coerceFloat(f *model.Field, raw any) (any, error) {
	switch n := raw.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		fv, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not a number")
		}
		return fv, nil
	case []byte:
		return coerceFloat(f, string(n))
	}
	return nil, errs.NewErrInvalidValue(f.Name, "not a number")
}

// Decimals are carried as their canonical string form so no precision is
// lost crossing the driver boundary.
func coerceDecimal(f *model.Field, raw any) (any, error) {
	var s string
	switch n := raw.(type) {
	case string:
		s = n
	case []byte:
		s = string(n)
	case float64:
		s = strconv.FormatFloat(n, 'f', -1, 64)
	case int64:
		s = strconv.FormatInt(n, 10)
	case int:
		s = strconv.Itoa(n)
	default:
		return nil, errs.NewErrInvalidValue(f.Name, "not a decimal")
	}
	if _, ok := new(big.Rat).SetString(s); !ok {
		return nil, errs.NewErrInvalidValue(f.Name, "not a decimal")
	}
	return s, nil
}

func coerceBool(f *model.Field, raw any) (any, error) {
	switch b := raw.(type) {
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case string:
		v, err := strconv.ParseBool(b)
		if err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not a boolean")
		}
		return v, nil
	case []byte:
		return coerceBool(f, string(b))
	}
	return nil, errs.NewErrInvalidValue(f.Name, "not a boolean")
}

func coerceString(f *model.Field, raw any) (string, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return "", errs.NewErrInvalidValue(f.Name, "not a string")
	}
	if s == "" && !f.AllowBlank && !f.AllowNull {
		return "", errs.NewErrInvalidValue(f.Name, "blank not allowed")
	}
	return s, nil
}

func coerceTime(f *model.Field, raw any, layout string) (any, error) {
	switch t := raw.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := parseTime(t, layout)
		if err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "cannot parse as "+f.Kind.String())
		}
		return parsed, nil
	case []byte:
		return coerceTime(f, string(t), layout)
	}
	return nil, errs.NewErrInvalidValue(f.Name, "cannot parse as "+f.Kind.String())
}

func parseTime(s, layout string) (time.Time, error) {
	if t, err := time.Parse(layout, s); err == nil {
		return t, nil
	}
	// SQLite hands datetimes back in its own layout.
	for _, alt := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(alt, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

func coerceUUID(f *model.Field, raw any) (any, error) {
	switch u := raw.(type) {
	case uuid.UUID:
		return u.String(), nil
	case string:
		parsed, err := uuid.Parse(u)
		if err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not a valid UUID")
		}
		return parsed.String(), nil
	case []byte:
		if len(u) == 16 {
			parsed, err := uuid.FromBytes(u)
			if err != nil {
				return nil, errs.NewErrInvalidValue(f.Name, "not a valid UUID")
			}
			return parsed.String(), nil
		}
		return coerceUUID(f, string(u))
	}
	return nil, errs.NewErrInvalidValue(f.Name, "not a valid UUID")
}

func coerceJSON(f *model.Field, raw any) (any, error) {
	switch j := raw.(type) {
	case json.RawMessage:
		return j, nil
	case []byte:
		if !json.Valid(j) {
			return nil, errs.NewErrInvalidValue(f.Name, "invalid JSON")
		}
		return json.RawMessage(j), nil
	case string:
		if !json.Valid([]byte(j)) {
			return nil, errs.NewErrInvalidValue(f.Name, "invalid JSON")
		}
		return json.RawMessage(j), nil
	default:
		data, err := json.Marshal(j)
		if err != nil {
			return nil, errs.NewErrInvalidValue(f.Name, "not JSON-encodable")
		}
		return json.RawMessage(data), nil
	}
}

// NewUUID is a ready-made default producer for UUID primary keys.
func NewUUID() any {
	return uuid.NewString()
}
