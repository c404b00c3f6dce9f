// Package cache stores LLM-derived results keyed by a hash of their input.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented TTL store
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Name() string
}

// New picks Redis when redisURL is set, otherwise an in-process cache.
// A Redis URL that fails to parse or ping falls back to memory.
func New(ctx context.Context, redisURL string) Cache {
	if redisURL == "" {
		log.Println("🗃️  Cache: in-memory (REDIS_URL not set)")
		return NewMemory()
	}

	rc, err := NewRedis(ctx, redisURL)
	if err != nil {
		log.Printf("⚠️  Redis unavailable, falling back to in-memory cache: %v", err)
		return NewMemory()
	}
	log.Println("🗃️  Cache: ✅ Redis")
	return rc
}

// Key builds a namespaced key from the normalised parts
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.Join(strings.Fields(p), " "))))
		h.Write([]byte{0})
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// Loader wraps a Cache with JSON encoding and single-flight loading
type Loader struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewLoader creates a Loader; a nil cache disables caching
func NewLoader(c Cache, ttl time.Duration) *Loader {
	if c == nil {
		c = Null{}
	}
	return &Loader{cache: c, ttl: ttl}
}

// GetOrLoad decodes a cached value into out, or calls load, caches its result and decodes that.
// Concurrent callers with the same key share one load. The bool reports a cache hit.
func (l *Loader) GetOrLoad(ctx context.Context, key string, out any, load func() (any, error)) (bool, error) {
	if raw, err := l.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal(raw, out); err == nil {
			return true, nil
		}
		log.Printf("⚠️  Cache entry %s undecodable, reloading", key)
	} else if !errors.Is(err, ErrMiss) {
		log.Printf("⚠️  Cache get failed for %s: %v", key, err)
	}

	result, err, _ := l.group.Do(key, func() (interface{}, error) {
		data, err := load()
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
		if err := l.cache.Set(ctx, key, body, l.ttl); err != nil {
			// A failed write never fails the request
			log.Printf("⚠️  Cache set failed for %s: %v", key, err)
		}
		return body, nil
	})
	if err != nil {
		return false, err
	}

	return false, json.Unmarshal(result.([]byte), out)
}
