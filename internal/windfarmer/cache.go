package windfarmer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

type cacheEntry struct {
	results   *model.AepResultSet
	expiresAt time.Time
}

// ResultCache keeps finished AEP results in memory, keyed by the request body that
// produced them. Re-running an unchanged scenario (a retried batch, a repeated
// variant) returns the cached result instead of paying for another calculation.
type ResultCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewResultCache returns a cache whose entries live for ttl. A ttl <= 0 returns nil,
// which every method treats as a disabled cache.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		return nil
	}
	return &ResultCache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves cached results if present and not expired.
func (c *ResultCache) Get(key string) (*model.AepResultSet, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.results, true
}

// Set stores results and drops any other expired entries.
func (c *ResultCache) Set(key string, results *model.AepResultSet) {
	if c == nil || results == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.store[key] = &cacheEntry{results: results, expiresAt: now.Add(c.ttl)}
}

func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *ResultCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*cacheEntry)
}

// CacheKey hashes the JSON form of a request payload. Maps marshal with sorted keys,
// so equal payloads always share a key.
func CacheKey(payload any) (string, error) {
	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("cache key: %w", err)
		}
		raw = b
	}
	hash := sha256.Sum256(raw)
	return hex.EncodeToString(hash[:]), nil
}
