package lru

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(2)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "k1", []byte("v1"), []string{"artist"}))
	require.NoError(t, s.Set(ctx, "k2", []byte("v2"), []string{"artist"}))

	val, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), val)

	// Capacity two: a third insert evicts the least recently used entry.
	require.NoError(t, s.Set(ctx, "k3", []byte("v3"), []string{"album"}))
	_, ok, _ = s.Get(ctx, "k2")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "k1")
	assert.True(t, ok)

	require.NoError(t, s.Invalidate(ctx, "artist"))
	_, ok, _ = s.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "k3")
	assert.True(t, ok)
}
