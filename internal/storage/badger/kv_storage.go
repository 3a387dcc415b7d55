package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/interfaces"
)

// KVEntry is one key-value pair.
type KVEntry struct {
	Key   string `badgerhold:"key"`
	Value string
}

// KVStorage implements interfaces.KeyValueStorage on badgerhold.
type KVStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewKVStorage creates key-value storage backed by db.
func NewKVStorage(db *BadgerDB, logger *common.Logger) *KVStorage {
	return &KVStorage{db: db, logger: logger}
}

// Get returns the value for key, or an error wrapping interfaces.ErrNotFound.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	var entry KVEntry
	if err := s.db.Store().Get(key, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", interfaces.ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set stores value under key.
func (s *KVStorage) Set(_ context.Context, key, value string) error {
	entry := KVEntry{Key: key, Value: value}
	if err := s.db.Store().Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(value)).Msg("kv set")
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	if err := s.db.Store().Delete(key, KVEntry{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GetAll returns every stored pair.
func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	var entries []KVEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to get all keys: %w", err)
	}
	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		result[entry.Key] = entry.Value
	}
	return result, nil
}
