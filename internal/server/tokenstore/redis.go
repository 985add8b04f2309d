package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/redis/go-redis/v9"
)

const defaultMaxAttempts = 16

// RedisStore is a Store backed by Redis. Transactions use optimistic
// locking: every key read inside Atomically is WATCHed, writes are queued and
// sent in one MULTI/EXEC, and the whole function is retried when EXEC is
// aborted by a concurrent writer.
type RedisStore struct {
	client      redis.UniversalClient
	maxAttempts int
}

type RedisOption func(*RedisStore)

// WithMaxAttempts bounds how many times Atomically retries on conflict.
func WithMaxAttempts(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, maxAttempts: defaultMaxAttempts}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return unavailable(s.client.Ping(ctx).Err())
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return v, true, nil
}

func (s *RedisStore) MultiGet(ctx context.Context, keys ...string) ([]Entry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]Entry, len(vals))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[i] = Entry{Value: str, Found: true}
		}
	}
	return out, nil
}

func (s *RedisStore) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	return unavailable(s.client.Set(ctx, key, value, ttl).Err())
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	return ok, unavailable(err)
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.PExpire(ctx, key, ttl).Result()
	return ok, unavailable(err)
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return unavailable(s.client.Del(ctx, keys...).Err())
}

func (s *RedisStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		var fnErr error
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := &redisTx{rtx: rtx, pending: make(map[string]*string)}
			if fnErr = fn(t); fnErr != nil {
				return fnErr
			}
			if len(t.ops) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				for _, op := range t.ops {
					op(p)
				}
				return nil
			})
			return err
		})
		switch {
		case err == nil:
			return nil
		case fnErr != nil:
			return fnErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return unavailable(err)
		}
	}
	return ErrConflict
}

// redisTx reads through WATCH and queues writes. pending mirrors queued
// writes for read-your-writes; a nil value marks a deleted key.
type redisTx struct {
	rtx     *redis.Tx
	ops     []func(redis.Pipeliner)
	pending map[string]*string
}

func (t *redisTx) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok := t.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	if err := t.rtx.Watch(ctx, key).Err(); err != nil {
		return "", false, unavailable(err)
	}
	v, err := t.rtx.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return v, true, nil
}

func (t *redisTx) MultiGet(ctx context.Context, keys ...string) ([]Entry, error) {
	out := make([]Entry, len(keys))
	for i, k := range keys {
		v, ok, err := t.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = Entry{Value: v, Found: ok}
	}
	return out, nil
}

func (t *redisTx) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.Set(ctx, key, value, ttl) })
	t.pending[key] = &value
	return nil
}

func (t *redisTx) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	_, found, err := t.Get(ctx, key)
	if err != nil || found {
		return false, err
	}
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.Set(ctx, key, value, 0) })
	t.pending[key] = &value
	return true, nil
}

func (t *redisTx) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	_, found, err := t.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.PExpire(ctx, key, ttl) })
	return true, nil
}

func (t *redisTx) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	t.ops = append(t.ops, func(p redis.Pipeliner) { p.Del(ctx, keys...) })
	for _, k := range keys {
		t.pending[k] = nil
	}
	return nil
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", common.ErrorTokenStoreUnavailable, err)
}
