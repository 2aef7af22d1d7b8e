// Package lru is a bounded in-process cache.Store. Capacity is counted in
// entries; eviction is least-recently-used, which suits hot read paths whose
// result sets are small and repetitive.
package lru

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

type Store struct {
	mutex sync.Mutex
	c     *lru.Cache
	byTag map[string]map[string]struct{}
}

func NewStore(size int) (*Store, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Store{
		c:     c,
		byTag: make(map[string]map[string]struct{}),
	}, nil
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
	s.c.Add(key, val)
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
			s.c.Remove(key)
		}
		delete(s.byTag, tag)
	}
	return nil
}
