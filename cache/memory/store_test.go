package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Minute)

	_, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k1", []byte("v1"), []string{"artist"}))
	require.NoError(t, s.Set(ctx, "k2", []byte("v2"), []string{"artist", "album"}))
	require.NoError(t, s.Set(ctx, "k3", []byte("v3"), []string{"track"}))

	val, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), val)

	// Invalidating one tag drops every entry carrying it, nothing else.
	require.NoError(t, s.Invalidate(ctx, "artist"))
	_, ok, _ = s.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "k2")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "k3")
	assert.True(t, ok)

	// Invalidating an unknown tag is a no-op.
	assert.NoError(t, s.Invalidate(ctx, "nope"))
}

func TestStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewStore(10 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "k", []byte("v"), nil))
	time.Sleep(30 * time.Millisecond)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
