// Package metadata persists small key/value pairs in the local SQLite
// database, scoped by namespace.
package metadata

import (
	"context"
)

// Repository reads and writes the pairs of a single namespace. Get returns
// (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
