// Package state persists small pieces of client-side state between CLI runs:
// the auth hint, the session cookie jar and the catalog cache.
//
// Three backends share one Store interface:
//   - BoltStore: a single bbolt file under the user's config dir (default)
//   - RedisStore: a shared Redis, keys namespaced as shop:{profile}:{key}
//   - MemoryStore: process-local, used by tests and --no-state runs
//
// Values are opaque bytes; GetJSON/SetJSON cover the common case.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key is missing or expired.
var ErrNotFound = errors.New("state: key not found")

// Store is a small key/value store with optional per-key expiry.
// A zero ttl means the value never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Well-known keys.
const (
	AuthTokenKey     = "auth:token"
	AuthUserKey      = "auth:user"
	SessionCookieKey = "session:cookies"
	ProductsKey      = "catalog:products"
	CategoriesKey    = "catalog:categories"

	// CatalogPrefix covers every catalog cache key.
	CatalogPrefix = "catalog:"
)

// ProductKey returns the cache key for a single product.
// Pattern: catalog:product:{id}
func ProductKey(id int) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

// CategoryKey returns the cache key for a category's product list.
// Pattern: catalog:category:{id}
func CategoryKey(id int) string {
	return fmt.Sprintf("catalog:category:%d", id)
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetJSON reads key and decodes it into out.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// entry is the on-disk envelope used by backends without native expiry.
type entry struct {
	Value     []byte     `json:"v"`
	ExpiresAt *time.Time `json:"exp,omitempty"`
}

func newEntry(value []byte, ttl time.Duration, now time.Time) entry {
	e := entry{Value: value}
	if ttl > 0 {
		exp := now.Add(ttl)
		e.ExpiresAt = &exp
	}
	return e
}

func (e entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}
