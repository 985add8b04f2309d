// Package tokenstore is a thin interface over an ephemeral key-value medium
// with per-key TTLs and all-or-nothing multi-key transactions.
//
// Failures of the underlying medium are reported wrapped in
// common.ErrorTokenStoreUnavailable and must never be read as "absent".
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by Atomically when concurrent writers kept
// invalidating the transaction until the retry budget ran out.
var ErrConflict = errors.New("token store: transaction conflict")

// Entry is one MultiGet result.
type Entry struct {
	Value string
	Found bool
}

// Ops are the single-key operations available both directly on a Store and
// inside a transaction.
type Ops interface {
	Get(ctx context.Context, key string) (string, bool, error)
	MultiGet(ctx context.Context, keys ...string) ([]Entry, error)

	// SetWithExpiry stores value under key with the given TTL.
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error

	// SetIfAbsent stores value without a TTL unless key already exists and
	// reports whether it did.
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)

	// Expire sets a TTL on an existing key and reports whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, keys ...string) error
}

// Tx is the handle passed to Atomically. Reads observe the transaction's own
// pending writes.
type Tx interface {
	Ops
}

// Store is the Token Store.
type Store interface {
	Ops

	// Atomically runs fn and publishes every write it made as one unit. If fn
	// returns an error nothing is written. fn may be invoked more than once
	// when a concurrent writer touched a key it read, so it must not have side
	// effects outside tx.
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}
