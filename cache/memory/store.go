// Package memory is an in-process cache.Store backed by an expiring cache.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Store struct {
	// mutex guards the tag index; the cache itself is already safe for
	// concurrent use.
	mutex      sync.Mutex
	c          *gocache.Cache
	expiration time.Duration
	// byTag maps a tag to the keys stored under it. Entries that expired on
	// their own leave dangling keys here; Invalidate tolerates them.
	byTag map[string]map[string]struct{}
}

func NewStore(expiration time.Duration) *Store {
	return &Store{
		c:          gocache.New(expiration, time.Minute),
		expiration: expiration,
		byTag:      make(map[string]map[string]struct{}),
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return val.([]byte), true, nil
}

func (s *Store) Set(ctx context.Context, key string, val []byte, tags []string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.c.Set(key, val, s.expiration)
	for _, tag := range tags {
		keys, ok := s.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (s *Store) Invalidate(ctx context.Context, tags ...string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, tag := range tags {
		for key := range s.byTag[tag] {
			s.c.Delete(key)
		}
		delete(s.byTag, tag)
	}
	return nil
}
