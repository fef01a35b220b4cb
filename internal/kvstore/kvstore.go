// Package kvstore is the persistent local store: a durable string-keyed
// blob store that every stateful component writes its JSON into. Three
// backends implement the same interface; which one runs is a deployment
// choice, the callers never know the difference.
package kvstore

import "context"

// Store defines the interface for the persistent local key-value store.
type Store interface {
	// Get returns the value stored under key. The second return is false
	// when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
