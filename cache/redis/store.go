// Package redis is a cache.Store shared across processes through Redis.
// Each tag keeps a set of the keys stored under it; invalidation deletes the
// members and the set in one round trip.
package redis

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type StoreOption func(store *Store)

type Store struct {
	prefix     string
	client     redis.Cmdable
	expiration time.Duration
}

func NewStore(client redis.Cmdable, opts ...StoreOption) *Store {
	res := &Store{
		client:     client,
		prefix:     "ormcache",
		expiration: time.Minute * 5,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func WithPrefix(prefix string) StoreOption {
	return func(store *Store) {
		store.prefix = prefix
	}
}

func WithExpiration(expiration time.Duration) StoreOption {
	return func(store *Store) {
		store.expiration = expiration
	}
}

func (s *Store) key(k string) string {
	return s.prefix + "_" + k
}

func (s *Store) tagKey(tag string) string {
	return s.prefix + "_tag_" + tag
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, val []byte, tags []string) error {
	k := s.key(key)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, k, val, s.expiration)
	for _, tag := range tags {
		tk := s.tagKey(tag)
		pipe.SAdd(ctx, tk, k)
		// Tag sets outlive their members slightly so stale keys in the set
		// still get cleaned up on the next invalidation.
		pipe.Expire(ctx, tk, s.expiration*2)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		tk := s.tagKey(tag)
		keys, err := s.client.SMembers(ctx, tk).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		keys = append(keys, tk)
		if _, err := s.client.Del(ctx, keys...).Result(); err != nil {
			return err
		}
	}
	return nil
}
