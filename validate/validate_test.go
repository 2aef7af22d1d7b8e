package validate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyxdb/orm/internal/errs"
	"github.com/calyxdb/orm/model"
)

func TestValidator_Coerce(t *testing.T) {
	v := New()

	testCases := []struct {
		name  string
		field *model.Field
		raw   any

		want    any
		wantErr error
	}{
		{
			name:  "int from int",
			field: model.Integer("n"),
			raw:   42,
			want:  int64(42),
		},
		{
			name:  "int from driver float",
			field: model.Integer("n"),
			raw:   float64(42),
			want:  int64(42),
		},
		{
			name:    "int rejects fraction",
			field:   model.Integer("n"),
			raw:     1.5,
			wantErr: errs.NewErrInvalidValue("n", "not a whole number"),
		},
		{
			name:  "int from string",
			field: model.Integer("n"),
			raw:   "7",
			want:  int64(7),
		},
		{
			name:  "float from int",
			field: model.Float("f"),
			raw:   3,
			want:  float64(3),
		},
		{
			name:  "decimal keeps canonical string",
			field: model.Decimal("d"),
			raw:   "12.3400",
			want:  "12.3400",
		},
		{
			name:    "decimal rejects junk",
			field:   model.Decimal("d"),
			raw:     "12.34.56",
			wantErr: errs.NewErrInvalidValue("d", "not a decimal"),
		},
		{
			name:  "bool from int",
			field: model.Boolean("b"),
			raw:   int64(1),
			want:  true,
		},
		{
			name:  "string within max length",
			field: model.String("s", 5),
			raw:   "hello",
			want:  "hello",
		},
		{
			name:    "string over max length",
			field:   model.String("s", 5),
			raw:     "hello!",
			wantErr: errs.NewErrInvalidValue("s", "length 6 exceeds max length 5"),
		},
		{
			name:    "string rejects blank",
			field:   model.String("s", 5),
			raw:     "",
			wantErr: errs.NewErrInvalidValue("s", "blank not allowed"),
		},
		{
			name:  "string allows blank when opted in",
			field: model.String("s", 5, model.Blank()),
			raw:   "",
			want:  "",
		},
		{
			name:  "text from driver bytes",
			field: model.Text("t"),
			raw:   []byte("body"),
			want:  "body",
		},
		{
			name:    "null rejected on non-nullable",
			field:   model.String("s", 5),
			raw:     nil,
			wantErr: errs.NewErrInvalidValue("s", "null not allowed"),
		},
		{
			name:  "null allowed on nullable",
			field: model.String("s", 5, model.Nullable()),
			raw:   nil,
			want:  nil,
		},
		{
			name:  "datetime passthrough",
			field: model.DateTime("at"),
			raw:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "datetime from rfc3339",
			field: model.DateTime("at"),
			raw:   "2024-03-01T10:00:00Z",
			want:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "datetime from sqlite layout",
			field: model.DateTime("at"),
			raw:   "2024-03-01 10:00:00",
			want:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "uuid from string",
			field: model.UUID("u"),
			raw:   "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			want:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		},
		{
			name:  "uuid from uuid.UUID",
			field: model.UUID("u"),
			raw:   uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
			want:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		},
		{
			name:    "uuid rejects junk",
			field:   model.UUID("u"),
			raw:     "not-a-uuid",
			wantErr: errs.NewErrInvalidValue("u", "not a valid UUID"),
		},
		{
			name:  "email accepted",
			field: model.Email("e"),
			raw:   "dev@example.com",
			want:  "dev@example.com",
		},
		{
			name:    "email rejected",
			field:   model.Email("e"),
			raw:     "not-an-email",
			wantErr: errs.NewErrInvalidValue("e", "not a valid email address"),
		},
		{
			name:  "url accepted",
			field: model.URL("u"),
			raw:   "https://example.com/x",
			want:  "https://example.com/x",
		},
		{
			name:  "ip v6 accepted",
			field: model.IPAddress("ip"),
			raw:   "::1",
			want:  "::1",
		},
		{
			name:    "ip rejected",
			field:   model.IPAddress("ip"),
			raw:     "999.0.0.1",
			wantErr: errs.NewErrInvalidValue("ip", "not a valid IP address"),
		},
		{
			name:  "enum accepted",
			field: model.Enum("state", []string{"pending", "done"}),
			raw:   "done",
			want:  "done",
		},
		{
			name:    "enum rejected",
			field:   model.Enum("state", []string{"pending", "done"}),
			raw:     "nope",
			wantErr: errs.NewErrInvalidValue("state", `"nope" is not a valid choice`),
		},
		{
			name:  "json from string",
			field: model.JSON("j"),
			raw:   `{"a":1}`,
			want:  json.RawMessage(`{"a":1}`),
		},
		{
			name:    "json rejects invalid",
			field:   model.JSON("j"),
			raw:     "{",
			wantErr: errs.NewErrInvalidValue("j", "invalid JSON"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.Coerce(tc.field, tc.raw)
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				return
			}
			if want, ok := tc.want.(time.Time); ok {
				assert.True(t, want.Equal(got.(time.Time)))
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidator_CoerceRelation(t *testing.T) {
	v := New()
	r := model.NewRegistry()
	artist := r.MustDefine("Artist", []*model.Field{model.Integer("id", model.PrimaryKey())})
	fk := model.ForeignKey("artist", artist, model.Cascade)

	got, err := v.Coerce(fk, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = v.Coerce(fk, pkStub{pk: int64(9)})
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)

	_, err = v.Coerce(fk, pkStub{})
	assert.Equal(t, errs.NewErrInvalidValue("artist", "related instance has no primary key"), err)
}

type pkStub struct {
	pk any
}

func (p pkStub) PK() any {
	return p.pk
}

func TestNewUUID(t *testing.T) {
	raw := NewUUID()
	_, err := uuid.Parse(raw.(string))
	assert.NoError(t, err)
}
