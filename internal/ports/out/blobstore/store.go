package blobstore

import "context"

// Store is the persistence gateway: a durable local key/value store holding
// one serialized table (or the persisted session) per namespaced key.
//
// Adapters never supply defaults; Load returns ErrNotFound and the state
// layer decides what an absent or undecodable table falls back to.
type Store interface {
	// Save replaces the full value stored under key.
	// Capacity exhaustion is reported as ErrCapacityExceeded; callers are
	// expected to warn and keep serving from memory rather than fail.
	Save(ctx context.Context, key string, data []byte) error

	// Load returns the stored value for key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
