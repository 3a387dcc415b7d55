package interfaces

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KeyValueStorage.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// StorageManager provides access to the storage backends.
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	DB() interface{}
	Close() error
}

// KeyValueStorage provides basic key-value operations.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}
