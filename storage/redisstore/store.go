// Package redisstore keeps each collection as a string value under a prefixed Redis key.
package redisstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

// ErrConflict is returned when Update keeps losing the race against other writers.
var ErrConflict = errors.New("too many concurrent updates")

const maxUpdateAttempts = 50

type Store struct {
	client *redis.Client
	prefix string
}

var _ core.RecordStore = (*Store)(nil) // interface compliance check

// Open connects to the configured Redis server and pings it.
func Open(conf *core.Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return New(client, conf.Redis.KeyPrefix), nil
}

func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(coll core.Collection) string {
	return s.prefix + string(coll)
}

func (s *Store) Load(ctx context.Context, coll core.Collection) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(coll)).Bytes()
	if err == redis.Nil {
		return nil, core.ErrCollectionNotFound
	}
	return data, err
}

func (s *Store) Save(ctx context.Context, coll core.Collection, data []byte) error {
	return s.client.Set(ctx, s.key(coll), data, 0).Err()
}

func (s *Store) Delete(ctx context.Context, coll core.Collection) error {
	return s.client.Del(ctx, s.key(coll)).Err()
}

// Update is an optimistic WATCH/MULTI transaction, retried while the key changes underneath it.
func (s *Store) Update(ctx context.Context, coll core.Collection, fn core.UpdateFunc) error {
	key := s.key(coll)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		found := true
		if err == redis.Nil {
			found = false
		} else if err != nil {
			return err
		}

		out, err := fn(data, found)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return ErrConflict
}

func (s *Store) Close() error { return s.client.Close() }
