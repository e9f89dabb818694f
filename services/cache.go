package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/givers/givers-backend/store"
)

// QueryCache avoids redundant round-trips for repeated identical queries
// within a session. It is an explicit value owned by the wiring layer, keyed
// by (collection, canonical filter), and invalidated per collection by every
// mutation path. It is deliberately not a module-level singleton.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]any
}

func NewQueryCache() *QueryCache {
	return &QueryCache{entries: make(map[string]any)}
}

// CacheKey canonicalizes a filter set: keys sorted, values rendered with %v.
func CacheKey(f store.Filter) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, f[k])
	}
	return b.String()
}

func (c *QueryCache) Get(collection, key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[collection+"|"+key]
	return v, ok
}

func (c *QueryCache) Set(collection, key string, v any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[collection+"|"+key] = v
}

// Invalidate drops every cached entry for the collection.
func (c *QueryCache) Invalidate(collection string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := collection + "|"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}
