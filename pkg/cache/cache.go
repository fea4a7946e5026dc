// Package cache stores realized cell geometry between runs.
//
// Keys are content hashes of everything that determines a cell's
// geometry (type chain, type versions, resolved parameters), so a hit can
// stand in for running the draw function.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Cache is a byte-oriented key/value store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Close() error
}

// Key hashes the JSON encoding of parts.
// The key format is: prefix:sha256(parts...)
func Key(prefix string, parts ...any) (string, error) {
	data, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("cache: key: %w", err)
	}
	hash := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(hash[:]), nil
}

// New returns a cache by backend name: "memory", "sqlite" or "none".
func New(kind, sqlitePath string) (Cache, error) {
	switch kind {
	case "", "memory":
		return NewMemoryCache(), nil
	case "none":
		return NewNullCache(), nil
	case "sqlite":
		s := NewSQLiteCache(sqlitePath)
		if err := s.Init(context.Background()); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("cache: unsupported backend %q", kind)
	}
}
