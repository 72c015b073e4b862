// Package cache keeps parsed documents between extraction calls.
package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/recordflat/pkg/contenttype"
	"github.com/usestring/recordflat/pkg/pathengine"
)

// DocumentCache provides thread-safe LRU caching for parsed documents.
// Documents are immutable, so a cached one may be shared by concurrent calls.
type DocumentCache struct {
	cache *lru.Cache[string, *pathengine.Document]
}

// NewDocumentCache creates a new LRU cache with the specified maximum number of items.
func NewDocumentCache(maxItems int) (*DocumentCache, error) {
	c, err := lru.New[string, *pathengine.Document](maxItems)
	if err != nil {
		return nil, err
	}
	return &DocumentCache{cache: c}, nil
}

// Key identifies a parsed document by where it came from and how it was read.
func Key(locator string, format contenttype.Format, encoding string) string {
	return strings.Join([]string{locator, string(format), strings.ToLower(encoding)}, "\x00")
}

// Get retrieves a document from the cache by its key.
// Returns the document and true if found, nil and false otherwise.
func (c *DocumentCache) Get(key string) (*pathengine.Document, bool) {
	return c.cache.Get(key)
}

// Put adds or updates a document in the cache.
func (c *DocumentCache) Put(key string, doc *pathengine.Document) {
	c.cache.Add(key, doc)
}

// Purge drops every cached document.
func (c *DocumentCache) Purge() {
	c.cache.Purge()
}

// Len returns the current number of items in the cache.
func (c *DocumentCache) Len() int {
	return c.cache.Len()
}
