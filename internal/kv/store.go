package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value surface the services are written against. Values are
// opaque strings; expiration is handled by the backing store.
type Store interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Put writes the value unconditionally with no expiration.
	Put(ctx context.Context, key, value string) error
	// PutIfAbsent writes the value only when the key does not exist and
	// reports whether the write happened.
	PutIfAbsent(ctx context.Context, key, value string) (bool, error)
	// PutWithTTL writes the value and schedules it to expire after ttl.
	PutWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
