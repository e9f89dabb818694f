package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/givers/givers-backend/store"
)

func TestCacheKeyCanonical(t *testing.T) {
	a := CacheKey(store.Filter{"status": true, "delete": false})
	b := CacheKey(store.Filter{"delete": false, "status": true})
	assert.Equal(t, a, b, "key ordering must not matter")

	c := CacheKey(store.Filter{"status": false, "delete": false})
	assert.NotEqual(t, a, c)
}

func TestCacheInvalidatePerCollection(t *testing.T) {
	c := NewQueryCache()
	c.Set(store.Campaigns, "k", 1)
	c.Set(store.Foundations, "k", 2)

	c.Invalidate(store.Campaigns)

	_, ok := c.Get(store.Campaigns, "k")
	assert.False(t, ok)
	v, ok := c.Get(store.Foundations, "k")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCacheNilSafe(t *testing.T) {
	var c *QueryCache
	c.Set(store.Campaigns, "k", 1)
	c.Invalidate(store.Campaigns)
	_, ok := c.Get(store.Campaigns, "k")
	assert.False(t, ok)
}
