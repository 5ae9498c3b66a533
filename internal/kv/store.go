// Package kv defines the KVStore port shared by the ingestor, derivation
// engine and evaluation engine, and its two implementations: a Redis-backed
// store for production and an in-memory fake for tests.
package kv

import (
	"context"
	"time"
)

// Store is the pluggable key-value port named in §1.
// Every write is either idempotent (SetNX) or monotonic by construction of
// the caller (Set overwrites unconditionally); the store itself provides no
// cross-key transactions — callers rely on per-key single-writer ownership
// instead (snapshot keys: ingestor; series keys: derivation; alert keys:
// evaluator).
type Store interface {
	// Get returns the raw value for key, and ok=false if it does not exist.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set unconditionally writes value with the given TTL. ttl<=0 means no
	// expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX writes value only if key is currently absent, returning
	// written=true iff this call performed the write. Used for the
	// ingestor's idempotent first-write-per-bucket guarantee.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (written bool, err error)

	// Expire refreshes the TTL of an existing key without touching its
	// value. A no-op if the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes a key. Not an error if the key is absent.
	Delete(ctx context.Context, key string) error

	// LPushCapped prepends value to the list at key, trims it to maxLen
	// entries (discarding the oldest), and refreshes its TTL. Used for the
	// heartbeat history supplemental feature.
	LPushCapped(ctx context.Context, key string, value []byte, maxLen int, ttl time.Duration) error

	// LRange returns up to count entries from the head of the list at key.
	LRange(ctx context.Context, key string, count int) ([][]byte, error)

	// Close releases any underlying connections.
	Close() error
}

// ErrNotFound is returned by helpers built on Store when a key is absent
// and the caller expects one to be present.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "kv: key not found" }
