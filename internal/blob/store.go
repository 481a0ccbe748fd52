// Package blob is the durable key-value storage behind the game. Keys are
// slash separated paths such as "game/state.json"; values are opaque bytes.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("blob not found")

// Store is a path-keyed blob store.
//
// Delete of a missing key is not an error. List returns the keys that start
// with prefix in ascending order.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)

	// Check reports whether the backend is reachable.
	Check(ctx context.Context) error
	Close() error
}
