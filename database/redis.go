// database/redis.go
package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per collection: field = document id, value = JSON.
type RedisStore struct {
	opts   *redis.Options
	prefix string
	rdb    *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		opts:   &redis.Options{Addr: addr, Password: password, DB: db},
		prefix: "voisss:",
	}
}

func (s *RedisStore) key(collection string) string {
	return s.prefix + collection
}

func (s *RedisStore) Connect(ctx context.Context) error {
	if s.rdb == nil {
		s.rdb = redis.NewClient(s.opts)
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis at %s: %w", s.opts.Addr, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	data, err := s.rdb.HGet(ctx, s.key(collection), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, collection, id string, data []byte) error {
	return s.rdb.HSet(ctx, s.key(collection), id, data).Err()
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	n, err := s.rdb.HDel(ctx, s.key(collection), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, collection string) ([]Document, error) {
	all, err := s.rdb.HGetAll(ctx, s.key(collection)).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(all))
	for id, data := range all {
		docs = append(docs, Document{ID: id, Data: []byte(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *RedisStore) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.rdb.HLen(ctx, s.key(collection)).Result()
	return int(n), err
}

func (s *RedisStore) Clear(ctx context.Context, collection string) error {
	return s.rdb.Del(ctx, s.key(collection)).Err()
}
