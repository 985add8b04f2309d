package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/timex"
)

type memItem struct {
	value     string
	expiresAt time.Time
}

func (i memItem) alive(now time.Time) bool {
	return i.expiresAt.IsZero() || now.Before(i.expiresAt)
}

// MemoryStore is an in-process Store. It serialises transactions behind a
// single mutex and is meant for tests and single-node development.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memItem
	now   timex.Clock
}

func NewMemoryStore(clock timex.Clock) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{items: make(map[string]memItem), now: clock}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().Get(ctx, key)
}

func (s *MemoryStore) MultiGet(ctx context.Context, keys ...string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().MultiGet(ctx, keys...)
}

func (s *MemoryStore) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.Atomically(ctx, func(tx Tx) error { return tx.SetWithExpiry(ctx, key, value, ttl) })
}

func (s *MemoryStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	var ok bool
	err := s.Atomically(ctx, func(tx Tx) error {
		var err error
		ok, err = tx.SetIfAbsent(ctx, key, value)
		return err
	})
	return ok, err
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var ok bool
	err := s.Atomically(ctx, func(tx Tx) error {
		var err error
		ok, err = tx.Expire(ctx, key, ttl)
		return err
	})
	return ok, err
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	return s.Atomically(ctx, func(tx Tx) error { return tx.Delete(ctx, keys...) })
}

func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.view()
	if err := fn(tx); err != nil {
		return err
	}
	for k, it := range tx.pending {
		if it == nil {
			delete(s.items, k)
			continue
		}
		s.items[k] = *it
	}
	return nil
}

// Len returns the number of live keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, it := range s.items {
		if it.alive(now) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) view() *memTx {
	return &memTx{s: s, now: s.now(), pending: make(map[string]*memItem)}
}

// memTx stages writes; a nil pending entry marks a deletion.
type memTx struct {
	s       *MemoryStore
	now     time.Time
	pending map[string]*memItem
}

func (t *memTx) lookup(key string) (memItem, bool) {
	if it, ok := t.pending[key]; ok {
		if it == nil || !it.alive(t.now) {
			return memItem{}, false
		}
		return *it, true
	}
	it, ok := t.s.items[key]
	if !ok || !it.alive(t.now) {
		return memItem{}, false
	}
	return it, true
}

func (t *memTx) Get(ctx context.Context, key string) (string, bool, error) {
	it, ok := t.lookup(key)
	return it.value, ok, nil
}

func (t *memTx) MultiGet(ctx context.Context, keys ...string) ([]Entry, error) {
	out := make([]Entry, len(keys))
	for i, k := range keys {
		it, ok := t.lookup(k)
		out[i] = Entry{Value: it.value, Found: ok}
	}
	return out, nil
}

func (t *memTx) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	it := &memItem{value: value}
	if ttl > 0 {
		it.expiresAt = t.now.Add(ttl)
	}
	t.pending[key] = it
	return nil
}

func (t *memTx) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if _, ok := t.lookup(key); ok {
		return false, nil
	}
	t.pending[key] = &memItem{value: value}
	return true, nil
}

func (t *memTx) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	it, ok := t.lookup(key)
	if !ok {
		return false, nil
	}
	it.expiresAt = t.now.Add(ttl)
	t.pending[key] = &it
	return true, nil
}

func (t *memTx) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		t.pending[k] = nil
	}
	return nil
}
