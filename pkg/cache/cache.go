// Package cache is the content-addressed render cache: values are keyed by
// a hash of the raw dataset bytes, so identical uploads reuse the previous
// render. Puts are idempotent; last-writer-wins is acceptable because the
// same key always maps to the same value.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Key derives the cache key for a dataset's raw bytes.
func Key(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Store is a TTL-bounded, concurrency-safe byte cache.
type Store struct {
	cache *ttlcache.Cache[string, []byte]
}

func New(ttl time.Duration) *Store {
	// Touch-on-hit is disabled so entries expire a fixed TTL after insertion
	// regardless of read traffic.
	c := ttlcache.New(
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go c.Start()
	return &Store{cache: c}
}

func (s *Store) Get(key string) ([]byte, bool) {
	item := s.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (s *Store) Put(key string, value []byte) {
	s.cache.Set(key, value, ttlcache.DefaultTTL)
}

func (s *Store) Stop() {
	s.cache.Stop()
}
