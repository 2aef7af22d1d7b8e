package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyxdb/orm/internal/errs"
)

func TestRegistry_Define(t *testing.T) {
	testCases := []struct {
		name string

		modelName string
		fields    []*Field
		opts      []Option

		wantTable string
		wantErr   error
	}{
		{
			name:      "simple model",
			modelName: "Album",
			fields: []*Field{
				Integer("id", PrimaryKey()),
				String("name", 100),
			},
			wantTable: "album",
		},
		{
			name:      "camel case table name",
			modelName: "TrackSegment",
			fields: []*Field{
				Integer("id", PrimaryKey()),
			},
			wantTable: "track_segment",
		},
		{
			name:      "table name override",
			modelName: "Album",
			fields: []*Field{
				Integer("id", PrimaryKey()),
			},
			opts:      []Option{WithTableName("albums_v2")},
			wantTable: "albums_v2",
		},
		{
			name:      "no primary key",
			modelName: "Album",
			fields: []*Field{
				String("name", 100),
			},
			wantErr: errs.NewErrNoPrimaryKey("Album"),
		},
		{
			name:      "duplicate field",
			modelName: "Album",
			fields: []*Field{
				Integer("id", PrimaryKey()),
				String("name", 100),
				Text("name"),
			},
			wantErr: errs.NewErrDuplicateField("name"),
		},
		{
			name:      "second primary key",
			modelName: "Album",
			fields: []*Field{
				Integer("id", PrimaryKey()),
				Integer("other", PrimaryKey()),
			},
			wantErr: errs.NewErrMultiplePrimaryKeys("other"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			m, err := r.Define(tc.modelName, tc.fields, tc.opts...)
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.wantTable, m.TableName)

			got, err := r.Get(tc.modelName)
			require.NoError(t, err)
			assert.Same(t, m, got)
		})
	}
}

func TestRegistry_DefineDuplicateModel(t *testing.T) {
	r := NewRegistry()
	_, err := r.Define("Album", []*Field{Integer("id", PrimaryKey())})
	require.NoError(t, err)
	_, err = r.Define("Album", []*Field{Integer("id", PrimaryKey())})
	assert.Equal(t, errs.NewErrDuplicateModel("Album"), err)
}

func TestRegistry_SetNullRequiresNullable(t *testing.T) {
	r := NewRegistry()
	artist := r.MustDefine("Artist", []*Field{Integer("id", PrimaryKey())})

	_, err := r.Define("Album", []*Field{
		Integer("id", PrimaryKey()),
		ForeignKey("artist", artist, SetNull),
	})
	assert.Equal(t, errs.NewErrSetNullOnNotNull("artist"), err)

	_, err = r.Define("Album", []*Field{
		Integer("id", PrimaryKey()),
		ForeignKey("artist", artist, SetNull, Nullable()),
	})
	assert.NoError(t, err)
}

func TestRegistry_Referencing(t *testing.T) {
	r := NewRegistry()
	artist := r.MustDefine("Artist", []*Field{Integer("id", PrimaryKey())})
	album := r.MustDefine("Album", []*Field{
		Integer("id", PrimaryKey()),
		ForeignKey("artist", artist, Cascade),
	})
	r.MustDefine("Track", []*Field{
		Integer("id", PrimaryKey()),
		ForeignKey("album", album, Cascade),
		ForeignKey("artist", artist, Restrict),
	})

	toArtist := r.Referencing(artist)
	require.Len(t, toArtist, 2)
	assert.Equal(t, "Album", toArtist[0].Source.Name)
	assert.Equal(t, "artist", toArtist[0].Field.Name)
	assert.Equal(t, "Track", toArtist[1].Source.Name)

	toAlbum := r.Referencing(album)
	require.Len(t, toAlbum, 1)
	assert.Equal(t, "Track", toAlbum[0].Source.Name)

	assert.Empty(t, r.Referencing(r.MustDefine("Lonely", []*Field{Integer("id", PrimaryKey())})))
}

func TestModel_Resolve(t *testing.T) {
	r := NewRegistry()
	m := r.MustDefine("Album", []*Field{
		Integer("id", PrimaryKey()),
		String("name", 100),
	})

	f, err := m.Resolve("pk")
	require.NoError(t, err)
	assert.Equal(t, "id", f.Name)

	f, err = m.Resolve("name")
	require.NoError(t, err)
	assert.Equal(t, "name", f.Name)

	_, err = m.Resolve("nope")
	assert.Equal(t, errs.NewErrUnknownField("nope"), err)
}
