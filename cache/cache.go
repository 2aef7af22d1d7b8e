// Package cache defines the query-result cache contract. Entries are
// serialized result sets keyed by a statement fingerprint and tagged with the
// model names the statement touched, so a write can drop every cached read
// that might now be stale.
package cache

import "context"

type Store interface {
	// Get returns the cached payload for key, with ok reporting a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the payload under key and associates it with tags.
	Set(ctx context.Context, key string, val []byte, tags []string) error
	// Invalidate drops every entry carrying any of the tags.
	Invalidate(ctx context.Context, tags ...string) error
}
